package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/needledrop/internal/audio"
	"github.com/linuxmatters/needledrop/internal/processor"
)

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(brandColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(brandColor)

	helpNameStyle = lipgloss.NewStyle().
			Foreground(okColor).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)
)

// helpRow is one entry of a help section: a name column and its description
type helpRow struct {
	name, help, def string
}

// StyledHelpPrinter renders kong help with Lipgloss styling. Flags tagged
// with a kong group get their own section after the ungrouped flags.
func StyledHelpPrinter(options kong.HelpOptions) func(options kong.HelpOptions, ctx *kong.Context) error {
	return func(_ kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder

		sb.WriteString(helpTitleStyle.Render("Needledrop 💿"))
		sb.WriteString("\n")
		sb.WriteString(helpDescStyle.Render("Vinyl mastering simulator for a folder of recordings"))
		sb.WriteString("\n\n")

		writeHelpSection(&sb, "Usage", []helpRow{{name: ctx.Model.Name + " [flags] <dir>"}})

		var args []helpRow
		for _, arg := range ctx.Model.Node.Positional {
			args = append(args, helpRow{name: arg.Summary(), help: arg.Help})
		}
		writeHelpSection(&sb, "Arguments", args)

		groups, order := flagRows(ctx.Model.Node.Flags)
		for _, title := range order {
			writeHelpSection(&sb, title, groups[title])
		}

		var presets []helpRow
		for _, p := range processor.Presets {
			presets = append(presets, helpRow{name: p.Name, help: p.Label})
		}
		writeHelpSection(&sb, "Presets", presets)
		writeHelpSection(&sb, "Formats", []helpRow{{name: strings.Join(audio.FormatSelectors(), ", ")}})

		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	}
}

// flagRows groups flags by kong group title, ungrouped flags first
func flagRows(flags []*kong.Flag) (map[string][]helpRow, []string) {
	const ungrouped = "Flags"
	groups := map[string][]helpRow{
		ungrouped: {{name: "-h, --help", help: "Show context-sensitive help."}},
	}
	order := []string{ungrouped}

	for _, f := range flags {
		if f.Name == "help" || f.Hidden {
			continue
		}
		title := ungrouped
		if f.Group != nil && f.Group.Title != "" {
			title = f.Group.Title
		}
		if _, seen := groups[title]; !seen {
			order = append(order, title)
		}
		groups[title] = append(groups[title], helpRow{
			name: flagName(f),
			help: f.Help,
			def:  f.FormatPlaceHolder(),
		})
	}
	return groups, order
}

func flagName(f *kong.Flag) string {
	name := "--" + f.Name
	if f.Short != 0 {
		name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
	}
	if !f.IsBool() && f.PlaceHolder != "" {
		name += "=" + strings.ToUpper(f.PlaceHolder)
	}
	return name
}

// writeHelpSection writes a titled block with names padded to a common width.
// Empty sections are skipped.
func writeHelpSection(sb *strings.Builder, title string, rows []helpRow) {
	if len(rows) == 0 {
		return
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r.name))
	}

	sb.WriteString(helpSectionStyle.Render(title + ":"))
	sb.WriteString("\n")
	for _, r := range rows {
		sb.WriteString("  ")
		if r.help == "" {
			sb.WriteString(helpNameStyle.Render(r.name))
		} else {
			sb.WriteString(helpNameStyle.Render(fmt.Sprintf("%-*s", width, r.name)))
			sb.WriteString("  ")
			sb.WriteString(r.help)
		}
		if r.def != "" {
			sb.WriteString(" ")
			sb.WriteString(helpDefaultStyle.Render("(default: " + r.def + ")"))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}
