package logging

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/needledrop/internal/audio"
	"github.com/linuxmatters/needledrop/internal/processor"
)

// ReportData is everything the per-file report shows
type ReportData struct {
	InputPath string
	StartTime time.Time
	EndTime   time.Time
	Preset    string
	Format    audio.Format
	Effects   processor.EffectConfig
	Seed      uint64
	Result    *processor.ProcessingResult
}

// ReportPath returns the report location for an output file: <output stem>.log
func ReportPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".log"
}

// GenerateReport writes the processing report next to the output file and
// returns its path
func GenerateReport(data ReportData) (string, error) {
	if data.Result == nil {
		return "", fmt.Errorf("no processing result for %s", data.InputPath)
	}
	logPath := ReportPath(data.Result.OutputPath)

	f, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	WriteReport(f, data)
	return logPath, nil
}

// WriteReport renders the report to w
func WriteReport(w io.Writer, data ReportData) {
	writeReportHeader(w, data)
	writeProcessingSummary(w, data)
	writeEffectSettings(w, data)
	writeLevelsTable(w, data.Result)
	writeSurfaceNoise(w, data)
	writeTagSummary(w, data.Result)
}

// writeSection writes a title with a dashed underline of the same length
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

func writeReportHeader(w io.Writer, data ReportData) {
	r := data.Result
	fmt.Fprintln(w, "Needledrop Processing Report")
	fmt.Fprintln(w, "============================")
	fmt.Fprintf(w, "File: %s\n", filepath.Base(data.InputPath))
	fmt.Fprintf(w, "Output: %s (%s)\n", filepath.Base(r.OutputPath), data.Format.Label)
	fmt.Fprintf(w, "Processed: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Duration: %s\n", formatDuration(time.Duration(r.Duration()*float64(time.Second))))
	if r.Source != nil {
		fmt.Fprintf(w, "Source: %d Hz, %s, %s via %s\n",
			r.Source.SampleRate, channelName(r.Source.Channels), r.Source.SampleFmt, r.Source.Decoder)
	}
	fmt.Fprintln(w)
}

func writeProcessingSummary(w io.Writer, data ReportData) {
	writeSection(w, "Processing Summary")

	r := data.Result
	for s := processor.StageLoad; int(s) < processor.StageCount; s++ {
		fmt.Fprintf(w, "%-12s %s\n", s.String()+":", formatDuration(r.StageTimes[s]))
	}

	total := data.EndTime.Sub(data.StartTime)
	fmt.Fprintf(w, "%-12s %s", "Total:", formatDuration(total))
	if d := r.Duration(); d > 0 && total > 0 {
		fmt.Fprintf(w, " (%.0fx real-time)", d/total.Seconds())
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
}

func writeEffectSettings(w io.Writer, data ReportData) {
	writeSection(w, "Effect Settings")

	cfg := data.Effects
	if data.Preset != "" {
		fmt.Fprintf(w, "Preset: %s\n", data.Preset)
	}
	up, down, _ := processor.SpeedRatio(cfg.Speed)

	t := &MetricTable{Headers: []string{"Value"}}
	t.AddRow("Speed", []string{formatMetric(cfg.Speed, 2)}, "x", fmt.Sprintf("resampled %d/%d", up, down))
	t.AddRow("Low-pass cutoff", []string{formatMetric(cfg.CutoffHz, 0)}, "Hz", "")
	t.AddRow("Saturation drive", []string{formatMetric(cfg.DriveDB, 1)}, "dB", enabledNote(cfg.DriveDB > 0))
	t.AddRow("Modulation rate", []string{formatMetric(cfg.ModRateHz, 2)}, "Hz", enabledNote(cfg.ModRateHz > 0 && cfg.ModDepth > 0))
	t.AddRow("Modulation depth", []string{formatMetric(cfg.ModDepth, 3)}, "", "")
	t.AddRow("Crackle amount", []string{formatMetric(cfg.CrackleAmount, 4)}, "", enabledNote(cfg.CrackleAmount > 0 && cfg.CrackleRate > 0))
	t.AddRow("Crackle rate", []string{formatMetric(cfg.CrackleRate, 2)}, "/s", "")
	t.AddRow("Hum level", []string{formatMetric(cfg.HumLevel, 4)}, "", enabledNote(cfg.HumLevel > 0))
	fmt.Fprint(w, t.String())

	stages := make([]string, len(data.Result.Stages))
	for i, id := range data.Result.Stages {
		stages[i] = string(id)
	}
	fmt.Fprintf(w, "Effect chain: %s\n", strings.Join(stages, " → "))
	fmt.Fprintf(w, "Compressor: %.0f dB threshold, %.0f:1, %.0f/%.0f ms; trim %s dB\n",
		processor.CompressorThresholdDB, processor.CompressorRatio,
		processor.CompressorAttackMs, processor.CompressorReleaseMs,
		formatMetricSigned(processor.TrimDB, 1))
	fmt.Fprintln(w)
}

func enabledNote(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func writeLevelsTable(w io.Writer, r *processor.ProcessingResult) {
	writeSection(w, "Levels")

	t := NewMetricTable()
	t.AddRow("Peak", []string{formatMetricDB(r.InputLevels.PeakDB, 1), formatMetricDB(r.OutputLevels.PeakDB, 1)}, "dBFS", "")
	t.AddRow("RMS", []string{formatMetricDB(r.InputLevels.RMSDB, 1), formatMetricDB(r.OutputLevels.RMSDB, 1)}, "dBFS",
		"change "+formatMetricSigned(r.OutputLevels.RMSDB-r.InputLevels.RMSDB, 1)+" dB")
	in, out := math.NaN(), r.Duration()
	if r.SampleRate > 0 {
		in = float64(r.InputFrames) / float64(r.SampleRate)
	}
	t.AddMetricRow("Duration", []float64{in, out}, 3, "s", "")
	t.AddRow("Frames", []string{fmt.Sprint(r.InputFrames), fmt.Sprint(r.OutputFrames)}, "", "")
	t.AddRow("Sample rate", []string{fmt.Sprint(r.SampleRate), fmt.Sprint(r.SampleRate)}, "Hz", "")
	t.AddRow("Channels", []string{fmt.Sprint(r.Channels), fmt.Sprint(r.Channels)}, "", channelName(r.Channels))
	fmt.Fprint(w, t.String())
	fmt.Fprintln(w)
}

func writeSurfaceNoise(w io.Writer, data ReportData) {
	writeSection(w, "Surface Noise")
	r := data.Result
	fmt.Fprintf(w, "Crackle bursts: %d\n", r.Bursts)
	if r.HumFreqHz > 0 {
		fmt.Fprintf(w, "Hum: %s at level %s\n", formatMetricWithUnit(r.HumFreqHz, 0, "Hz"), formatMetric(data.Effects.HumLevel, 4))
	} else {
		fmt.Fprintln(w, "Hum: off")
	}
	if data.Seed != 0 {
		fmt.Fprintf(w, "Seed: %d\n", data.Seed)
	}
	fmt.Fprintln(w)
}

func writeTagSummary(w io.Writer, r *processor.ProcessingResult) {
	writeSection(w, "Tags")
	fmt.Fprintf(w, "Title: %s\n", r.Title)
	if r.TagWarning != nil {
		fmt.Fprintf(w, "Warning: %v\n", r.TagWarning)
	} else {
		fmt.Fprintln(w, "Source tags copied")
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", minutes/60, minutes%60, seconds)
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}
