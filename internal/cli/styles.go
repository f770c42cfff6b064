package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/needledrop/internal/batch"
)

// Color palette
var (
	brandColor = lipgloss.Color("#C77D1E") // shellac amber
	errorColor = lipgloss.Color("#A40000")
	okColor    = lipgloss.Color("#00AA00")
	mutedColor = lipgloss.Color("#888888")
	textColor  = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(brandColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	OKStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(okColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)
)

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render("Needledrop 💿"))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintSummary writes the end-of-run counts and any failed items to w
func PrintSummary(w io.Writer, s *batch.Summary) {
	for _, it := range s.Items {
		if it.OK() || it.Err == nil {
			continue
		}
		fmt.Fprintf(w, "%s %s: %v\n", ErrorStyle.Render("✗"), filepath.Base(it.Input), it.Err)
	}

	style := OKStyle
	if s.Failed > 0 {
		style = ErrorStyle
	}
	counts := fmt.Sprintf("%d succeeded, %d failed", s.Succeeded, s.Failed)
	if s.Skipped > 0 {
		counts += fmt.Sprintf(", %d skipped", s.Skipped)
	}
	fmt.Fprintln(w, style.Render(counts))
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Output:"), s.OutputDir)
	fmt.Fprintf(w, "%s %d\n", KeyStyle.Render("Seed:"), s.Seed)
}
