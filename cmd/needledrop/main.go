package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/linuxmatters/needledrop/internal/audio"
	"github.com/linuxmatters/needledrop/internal/batch"
	"github.com/linuxmatters/needledrop/internal/cli"
	"github.com/linuxmatters/needledrop/internal/logging"
	"github.com/linuxmatters/needledrop/internal/processor"
	"github.com/linuxmatters/needledrop/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	version = "0.0.1"
)

// CLI defines the command-line interface
type CLI struct {
	Version bool            `short:"v" help:"Show version information"`
	Config  kong.ConfigFlag `short:"c" help:"Path to a JSON config file (optional)"`
	Preset  string          `short:"p" default:"piano" env:"NEEDLEDROP_PRESET" help:"Effect preset: piano, hardbop, vocal-jazz, fusion or custom"`
	Format  string          `short:"f" default:"flac" env:"NEEDLEDROP_FORMAT" help:"Output format"`
	Jobs    int             `short:"j" default:"1" env:"NEEDLEDROP_JOBS" help:"Files to process at once"`
	Seed    uint64          `help:"Crackle seed, 0 picks one at random" default:"0"`
	Plain   bool            `help:"Plain log output instead of the interactive view"`
	Verbose bool            `help:"Log debug detail in plain mode"`
	Logs    bool            `help:"Save a processing report next to each output file"`

	Speed        *float64 `group:"Effect overrides" help:"Playback speed ratio, overrides the preset"`
	Cutoff       *float64 `group:"Effect overrides" help:"Low-pass cutoff in Hz, overrides the preset"`
	Drive        *float64 `group:"Effect overrides" help:"Saturation drive in dB, overrides the preset"`
	ModRate      *float64 `group:"Effect overrides" name:"mod-rate" help:"Modulation rate in Hz, overrides the preset"`
	ModDepth     *float64 `group:"Effect overrides" name:"mod-depth" help:"Modulation depth 0-1, overrides the preset"`
	Crackle      *float64 `group:"Effect overrides" help:"Crackle burst amplitude, overrides the preset"`
	CrackleRate  *float64 `group:"Effect overrides" name:"crackle-rate" help:"Crackle bursts per second, overrides the preset"`
	Hum          *float64 `group:"Effect overrides" help:"Mains hum level, overrides the preset"`
	HumFrequency *float64 `group:"Effect overrides" name:"hum-freq" help:"Hum frequency in Hz, 0 uses the local mains frequency"`

	Dir string `arg:"" name:"dir" help:"Folder of recordings to process" type:"existingdir" optional:""`
}

// effects resolves the preset and applies any per-field overrides
func (c *CLI) effects() (processor.EffectConfig, error) {
	cfg, err := processor.PresetByName(c.Preset)
	if err != nil {
		return processor.EffectConfig{}, err
	}
	cfg = processor.Overrides{
		Speed:         c.Speed,
		CutoffHz:      c.Cutoff,
		DriveDB:       c.Drive,
		ModRateHz:     c.ModRate,
		ModDepth:      c.ModDepth,
		CrackleAmount: c.Crackle,
		CrackleRate:   c.CrackleRate,
		HumLevel:      c.Hum,
		HumFreqHz:     c.HumFrequency,
	}.Apply(cfg)
	return cfg, cfg.Validate()
}

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("needledrop"),
		kong.Description("Vinyl mastering simulator"),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "~/.config/needledrop/config.json", "./needledrop.json"),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if cliArgs.Dir == "" {
		cli.PrintError("No input folder specified")
		ctx.PrintUsage(false)
		os.Exit(1)
	}

	os.Exit(run(cliArgs))
}

func run(c *CLI) int {
	effects, err := c.effects()
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	format, err := audio.ParseFormat(c.Format)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	if format.NeedsFFmpeg() && !audio.HaveFFmpeg() {
		cli.PrintError(fmt.Sprintf("%s output: %v", format.Label, audio.ErrFFmpegMissing))
		return 1
	}

	files, err := batch.Discover(c.Dir)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	plain := c.Plain || !(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	log, closer, err := logging.NewForMode(plain, c.Verbose)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	defer closer.Close()

	log.WithFields(logrus.Fields{
		"preset": c.Preset,
		"format": format.Name,
		"files":  len(files),
		"jobs":   c.Jobs,
	}).Info("starting batch")

	// Resolve the seed up front so reports can record it
	seed := c.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	runner := &batch.Runner{
		Root:    c.Dir,
		Effects: effects,
		Format:  format,
		Jobs:    c.Jobs,
		Seed:    seed,
		Log:     log,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var summary *batch.Summary
	if plain {
		summary, err = runner.Run(runCtx, files, withReports(nil, c, runner, log, len(files)))
	} else {
		summary, err = runTUI(runCtx, c, runner, files, log)
	}
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	if plain {
		cli.PrintSummary(os.Stdout, summary)
	}
	if summary.Failed > 0 || summary.Skipped > 0 {
		return 1
	}
	return 0
}

// runTUI drives the batch in the background while Bubbletea renders progress
func runTUI(ctx context.Context, c *CLI, runner *batch.Runner, files []string, log *logrus.Logger) (*batch.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(files, cancel, log)
	model.Preset = c.Preset
	model.Format = runner.Format.Label
	p := tea.NewProgram(model, tea.WithAltScreen())

	type outcome struct {
		summary *batch.Summary
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		events := withReports(ui.ProgramEvents{P: p}, c, runner, log, len(files))
		summary, err := runner.Run(ctx, files, events)
		p.Send(ui.AllCompleteMsg{Summary: summary, Error: err})
		done <- outcome{summary, err}
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("UI error: %w", err)
	}

	// The user may quit before the batch drains; wait for in-flight files
	res := <-done
	if m, ok := final.(ui.Model); ok && m.Done {
		fmt.Print(m.View())
	} else if res.summary != nil {
		cli.PrintSummary(os.Stdout, res.summary)
	}
	return res.summary, res.err
}

// reportEvents writes a per-file report as each item finishes
type reportEvents struct {
	batch.Events
	preset  string
	runner  *batch.Runner
	log     logrus.FieldLogger
	started []time.Time // indexed by item; each index is touched by one worker
}

func withReports(inner batch.Events, c *CLI, runner *batch.Runner, log logrus.FieldLogger, n int) batch.Events {
	if inner == nil {
		inner = logEvents{log}
	}
	if !c.Logs {
		return inner
	}
	return &reportEvents{
		Events:  inner,
		preset:  c.Preset,
		runner:  runner,
		log:     log,
		started: make([]time.Time, n),
	}
}

func (e *reportEvents) ItemStarted(index int, input string) {
	if index >= 0 && index < len(e.started) {
		e.started[index] = time.Now()
	}
	e.Events.ItemStarted(index, input)
}

func (e *reportEvents) ItemFinished(item batch.Item) {
	if item.OK() {
		start := time.Now()
		if item.Index >= 0 && item.Index < len(e.started) {
			start = e.started[item.Index]
		}
		path, err := logging.GenerateReport(logging.ReportData{
			InputPath: item.Input,
			StartTime: start,
			EndTime:   time.Now(),
			Preset:    e.preset,
			Format:    e.runner.Format,
			Effects:   e.runner.Effects,
			Seed:      e.runner.Seed,
			Result:    item.Result,
		})
		if err != nil {
			e.log.WithError(err).WithField("file", item.Input).Warn("failed to write report")
		} else {
			e.log.WithField("report", path).Debug("report written")
		}
	}
	e.Events.ItemFinished(item)
}

// logEvents is the plain-mode sink; the runner already logs each item
type logEvents struct {
	log logrus.FieldLogger
}

func (e logEvents) ItemStarted(index int, input string) {
	e.log.WithFields(logrus.Fields{"index": index, "file": input}).Debug("started")
}

func (e logEvents) StageProgress(index int, stage processor.Stage, progress, _ float64) {
	if progress == 0 {
		e.log.WithFields(logrus.Fields{"index": index, "stage": stage.String()}).Debug("stage")
	}
}

func (logEvents) ItemFinished(batch.Item) {}
