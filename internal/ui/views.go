package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/needledrop/internal/processor"
)

var (
	brandColor = lipgloss.Color("#C77D1E") // shellac amber
	okColor    = lipgloss.Color("#00AA00")
	warnColor  = lipgloss.Color("#FFA500")
	errColor   = lipgloss.Color("#A40000")
	mutedColor = lipgloss.Color("#888888")
)

// renderProcessingView renders the main processing view
func renderProcessingView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	b.WriteString(renderFileQueue(m))
	b.WriteString("\n")

	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(brandColor).
		Render("Needledrop 💿 - Vinyl Mastering Simulator")

	settings := fmt.Sprintf("Processing %d file(s)", m.TotalFiles)
	if m.Preset != "" {
		settings += " | preset " + m.Preset
	}
	if m.Format != "" {
		settings += " | " + m.Format
	}
	subtitle := lipgloss.NewStyle().
		Foreground(mutedColor).
		Italic(true).
		Render(settings)

	return title + "\n" + subtitle
}

// renderFileQueue renders the list of files with their status
func renderFileQueue(m Model) string {
	var b strings.Builder
	for _, file := range m.Files {
		b.WriteString(renderFileEntry(file))
		b.WriteString("\n")
	}
	return b.String()
}

func icon(symbol string, color lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(color).Render(symbol)
}

// renderFileEntry renders a single file entry in the queue
func renderFileEntry(file FileProgress) string {
	fileName := filepath.Base(file.InputPath)

	switch file.Status {
	case StatusComplete:
		entry := fmt.Sprintf(" %s %s → %s", icon("✓", okColor), fileName, filepath.Base(file.OutputPath))
		if file.Result != nil && file.Result.TagWarning != nil {
			entry += "\n   " + lipgloss.NewStyle().Foreground(warnColor).Render("tags: "+file.Result.TagWarning.Error())
		}
		return entry

	case StatusProcessing:
		return fmt.Sprintf(" %s %s\n%s", icon("⚙", warnColor), fileName, renderFileDetails(file))

	case StatusError:
		return fmt.Sprintf(" %s %s\n   Error: %v", icon("✗", errColor), fileName, file.Error)

	case StatusSkipped:
		return fmt.Sprintf(" %s %s\n   Skipped", icon("–", mutedColor), fileName)

	default:
		return fmt.Sprintf(" %s %s\n   Queued...", icon("○", mutedColor), fileName)
	}
}

// renderFileDetails renders detailed progress for an active file
func renderFileDetails(file FileProgress) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(brandColor).
		Padding(0, 1).
		Width(60)

	var content strings.Builder

	fmt.Fprintf(&content, "Stage %d/%d: %s\n", int(file.Stage)+1, processor.StageCount, file.Stage)
	content.WriteString(renderProgressBar(file.Progress(), 40))
	content.WriteString("\n")

	elapsed := file.ElapsedTime.Seconds()
	fmt.Fprintf(&content, "⏱  Elapsed: %.1fs", elapsed)
	if file.CurrentLevel != 0 {
		fmt.Fprintf(&content, "\n📊 Level: %.1f dBFS | Peak: %.1f dBFS", file.CurrentLevel, file.PeakLevel)
	}

	return box.Render(content.String())
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	progress = min(max(progress, 0), 1)
	filled := int(progress * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return fmt.Sprintf("%s %d%%", bar, int(progress*100))
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColor).
		Padding(0, 1).
		Width(60)

	finished := m.CompletedFiles + m.FailedFiles
	content := fmt.Sprintf("%d/%d finished, %d in progress", finished, m.TotalFiles, m.Active)
	if m.FailedFiles > 0 {
		content += fmt.Sprintf(", %d failed", m.FailedFiles)
	}
	content += "\n" + lipgloss.NewStyle().Foreground(mutedColor).Render("q to stop after the current files")

	return box.Render(content)
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	header := lipgloss.NewStyle().Bold(true).Foreground(okColor).Render("✨ Processing Complete!")
	if m.Err != nil {
		header = lipgloss.NewStyle().Bold(true).Foreground(errColor).Render("Batch failed: " + m.Err.Error())
	} else if m.FailedFiles > 0 {
		header = lipgloss.NewStyle().Bold(true).Foreground(warnColor).Render("Processing finished with errors")
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, file := range m.Files {
		b.WriteString(renderFileEntry(file))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d succeeded, %d failed", m.CompletedFiles, m.FailedFiles)
	if m.SkippedFiles > 0 {
		fmt.Fprintf(&b, ", %d skipped", m.SkippedFiles)
	}
	b.WriteString("\n")
	if m.Summary != nil {
		fmt.Fprintf(&b, "Output: %s\n", m.Summary.OutputDir)
	}

	return b.String()
}
