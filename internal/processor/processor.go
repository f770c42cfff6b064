package processor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/needledrop/internal/audio"
	"github.com/linuxmatters/needledrop/internal/tags"
)

// OutputPrefix is prepended to every output file stem
const OutputPrefix = "LP_"

// Stage identifies a step of the per-file pipeline for progress reporting
type Stage int

// Pipeline stages in execution order
const (
	StageLoad Stage = iota
	StageResample
	StageEffects
	StageCrackle
	StageHum
	StageEncode
	StageTags
)

// StageCount is the number of pipeline stages
const StageCount = int(StageTags) + 1

var stageNames = [StageCount]string{
	"Loading", "Resampling", "Effects", "Crackle", "Hum", "Encoding", "Tagging",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= StageCount {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// ProgressFunc receives progress within a stage (0.0 at start, 1.0 at end)
// and the buffer peak level in dBFS once the stage has produced audio (0 before)
type ProgressFunc func(stage Stage, progress float64, levelDB float64)

// Options configures ProcessFile
type Options struct {
	Effects EffectConfig
	Format  audio.Format
	// Rand drives crackle placement. Nil seeds a fresh source from the clock.
	Rand *rand.Rand
}

// ProcessingResult describes one processed item
type ProcessingResult struct {
	InputPath  string
	OutputPath string
	Title      string

	Source       *audio.Metadata
	SampleRate   int
	Channels     int
	InputFrames  int
	OutputFrames int

	InputLevels  Levels
	OutputLevels Levels

	Stages    []FilterID
	Bursts    int
	HumFreqHz float64

	// TagWarning is set when tags could not be fully copied; the audio was still written
	TagWarning error

	StageTimes [StageCount]time.Duration
}

// Duration returns the output length in seconds
func (r *ProcessingResult) Duration() float64 {
	if r.SampleRate == 0 {
		return 0
	}
	return float64(r.OutputFrames) / float64(r.SampleRate)
}

// OutputName returns the output file name for inputPath: LP_<stem><ext>
func OutputName(inputPath string, format audio.Format) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return OutputPrefix + stem + format.Ext
}

// ProcessFile runs the full pipeline for one item:
// load → resample → effect chain → crackle → hum → encode → tags.
//
// The output title tag is the output file stem. A tag copy failure is
// reported in ProcessingResult.TagWarning and does not fail the item.
func ProcessFile(ctx context.Context, inputPath, outputPath string, opts Options, progress ProgressFunc) (*ProcessingResult, error) {
	if err := opts.Effects.Validate(); err != nil {
		return nil, err
	}
	if opts.Format.Ext == "" {
		return nil, fmt.Errorf("no output format selected")
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if progress == nil {
		progress = func(Stage, float64, float64) {}
	}

	result := &ProcessingResult{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Title:      strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath)),
	}

	var stageStart time.Time
	begin := func(s Stage) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stageStart = time.Now()
		progress(s, 0, 0)
		return nil
	}
	end := func(s Stage, buf *audio.Buffer) {
		result.StageTimes[s] = time.Since(stageStart)
		level := 0.0
		if buf != nil {
			level = MeasureLevels(buf).PeakDB
		}
		progress(s, 1, level)
	}

	// Load
	if err := begin(StageLoad); err != nil {
		return nil, err
	}
	buf, meta, err := audio.Load(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	result.Source = meta
	result.SampleRate = buf.SampleRate
	result.Channels = buf.NumChannels()
	result.InputFrames = buf.NumFrames()
	result.InputLevels = MeasureLevels(buf)
	end(StageLoad, buf)

	// Resample
	if err := begin(StageResample); err != nil {
		return nil, err
	}
	buf, err = Resample(buf, opts.Effects.Speed)
	if err != nil {
		return nil, fmt.Errorf("resample failed: %w", err)
	}
	end(StageResample, buf)

	// Effect chain
	if err := begin(StageEffects); err != nil {
		return nil, err
	}
	chain := NewChain(opts.Effects)
	result.Stages = chain.Stages()
	buf = chain.Apply(buf)
	end(StageEffects, buf)

	// Crackle
	if err := begin(StageCrackle); err != nil {
		return nil, err
	}
	result.Bursts = AddCrackle(buf, opts.Effects.CrackleAmount, opts.Effects.CrackleRate, rng)
	end(StageCrackle, buf)

	// Hum
	if err := begin(StageHum); err != nil {
		return nil, err
	}
	result.HumFreqHz = AddHum(buf, opts.Effects.HumLevel, opts.Effects.HumFreqHz)
	end(StageHum, buf)

	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("processed audio is invalid: %w", err)
	}
	result.OutputFrames = buf.NumFrames()
	result.OutputLevels = MeasureLevels(buf)

	// Encode
	if err := begin(StageEncode); err != nil {
		return nil, err
	}
	if err := audio.Encode(ctx, buf, outputPath, opts.Format); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	end(StageEncode, nil)

	// Tags never fail the item, even once cancelled
	stageStart = time.Now()
	progress(StageTags, 0, 0)
	result.TagWarning = tags.Propagate(ctx, inputPath, outputPath, result.Title)
	end(StageTags, nil)

	return result, nil
}
