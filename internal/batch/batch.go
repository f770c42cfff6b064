// Package batch discovers audio under a folder and runs every item through
// the processor, sequentially or on a small worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/linuxmatters/needledrop/internal/audio"
	"github.com/linuxmatters/needledrop/internal/processor"
	"github.com/sirupsen/logrus"
)

// OutputDirName is the folder created inside the source folder for results
const OutputDirName = "LP_out"

// ErrNoInputs is returned by Discover when nothing processable was found
var ErrNoInputs = errors.New("no supported audio files found")

// Discover returns every supported audio file under root in lexical walk order.
// Extensions match case-insensitively and any LP_out folder is skipped so
// earlier results are never re-processed.
func Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot read source folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a folder", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && d.Name() == OutputDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && audio.IsSupported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputs, root)
	}
	return files, nil
}

// Item is the outcome of one discovered file
type Item struct {
	Index  int
	Input  string
	Output string
	Result *processor.ProcessingResult // nil on failure
	Err    error
}

// OK reports whether the item produced an output file
func (it Item) OK() bool { return it.Err == nil && it.Result != nil }

// Events receives batch progress. Methods are called from worker goroutines
// and must be safe for concurrent use.
type Events interface {
	ItemStarted(index int, input string)
	StageProgress(index int, stage processor.Stage, progress, levelDB float64)
	ItemFinished(item Item)
}

type noEvents struct{}

func (noEvents) ItemStarted(int, string)                              {}
func (noEvents) StageProgress(int, processor.Stage, float64, float64) {}
func (noEvents) ItemFinished(Item)                                    {}

// Summary describes a finished batch
type Summary struct {
	OutputDir string
	Seed      uint64
	Items     []Item // discovery order
	Succeeded int
	Failed    int
	Skipped   int // never started because the batch was cancelled
	Elapsed   time.Duration
}

// Runner processes a list of files with one EffectConfig and output format
type Runner struct {
	Root    string
	Effects processor.EffectConfig
	Format  audio.Format
	Jobs    int    // concurrent workers, values below 1 mean 1
	Seed    uint64 // crackle seed, 0 picks one from the clock
	Log     logrus.FieldLogger
}

// OutputDir returns <root>/LP_out
func (r *Runner) OutputDir() string {
	return filepath.Join(r.Root, OutputDirName)
}

// OutputPath mirrors input's folder below root inside the output folder
func (r *Runner) OutputPath(input string) string {
	rel, err := filepath.Rel(r.Root, filepath.Dir(input))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = "."
	}
	return filepath.Join(r.OutputDir(), rel, processor.OutputName(input, r.Format))
}

// Run processes files and returns the summary. Failing to create the output
// folder aborts the batch; every per-item failure is recorded and the batch
// moves on. Cancelling ctx stops dispatching new items.
func (r *Runner) Run(ctx context.Context, files []string, events Events) (*Summary, error) {
	start := time.Now()
	if events == nil {
		events = noEvents{}
	}
	log := r.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	outDir := r.OutputDir()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	seed := r.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	summary := &Summary{OutputDir: outDir, Seed: seed, Items: make([]Item, len(files))}
	for i, f := range files {
		summary.Items[i] = Item{Index: i, Input: f, Output: r.OutputPath(f)}
	}

	workers := max(1, min(r.Jobs, len(files)))
	indices := make(chan int)
	started := make([]bool, len(files))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				summary.Items[i] = r.runItem(ctx, summary.Items[i], seed, events, log)
			}
		}()
	}

dispatch:
	for i := range files {
		select {
		case <-ctx.Done():
			break dispatch
		case indices <- i:
			started[i] = true
		}
	}
	close(indices)
	wg.Wait()

	for i, it := range summary.Items {
		switch {
		case !started[i]:
			summary.Items[i].Err = fmt.Errorf("not started: %w", context.Cause(ctx))
			summary.Skipped++
		case it.OK():
			summary.Succeeded++
		default:
			summary.Failed++
		}
	}
	summary.Elapsed = time.Since(start)

	log.WithFields(logrus.Fields{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
		"elapsed":   summary.Elapsed.Round(time.Millisecond),
	}).Info("batch complete")

	return summary, nil
}

func (r *Runner) runItem(ctx context.Context, it Item, seed uint64, events Events, log logrus.FieldLogger) Item {
	events.ItemStarted(it.Index, it.Input)
	fields := logrus.Fields{"file": r.relative(it.Input), "output": r.relative(it.Output)}

	defer func() { events.ItemFinished(it) }()

	if err := os.MkdirAll(filepath.Dir(it.Output), 0o755); err != nil {
		it.Err = fmt.Errorf("failed to create output folder: %w", err)
		log.WithFields(fields).WithError(it.Err).Error("failed")
		return it
	}

	opts := processor.Options{
		Effects: r.Effects,
		Format:  r.Format,
		Rand:    rand.New(rand.NewPCG(seed, uint64(it.Index))),
	}
	result, err := processor.ProcessFile(ctx, it.Input, it.Output, opts,
		func(stage processor.Stage, progress, level float64) {
			events.StageProgress(it.Index, stage, progress, level)
		})
	if err != nil {
		it.Err = err
		log.WithFields(fields).WithError(err).Error("failed")
		return it
	}

	it.Result = result
	if result.TagWarning != nil {
		log.WithFields(fields).WithError(result.TagWarning).Warn("tags not fully copied")
	}
	log.WithFields(fields).WithFields(logrus.Fields{
		"duration": fmt.Sprintf("%.1fs", result.Duration()),
		"peak":     fmt.Sprintf("%.1f dBFS", result.OutputLevels.PeakDB),
		"bursts":   result.Bursts,
	}).Info("done")
	return it
}

func (r *Runner) relative(path string) string {
	if rel, err := filepath.Rel(r.Root, path); err == nil {
		return rel
	}
	return path
}
