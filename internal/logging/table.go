package logging

import (
	"fmt"
	"math"
	"strings"
)

// MetricRow is one row of a comparison table. Values are pre-formatted.
type MetricRow struct {
	Label  string
	Values []string // one per header
	Unit   string
	Note   string // optional trailing note
}

// MetricTable renders aligned before/after columns for the report
type MetricTable struct {
	Headers []string
	Rows    []MetricRow
}

// NewMetricTable returns a table with Input and Output columns
func NewMetricTable() *MetricTable {
	return &MetricTable{Headers: []string{"Input", "Output"}}
}

// AddRow appends a row of pre-formatted values
func (t *MetricTable) AddRow(label string, values []string, unit, note string) {
	t.Rows = append(t.Rows, MetricRow{Label: label, Values: values, Unit: unit, Note: note})
}

// AddMetricRow appends a row of numbers, one per column. NaN renders as MissingValue.
func (t *MetricTable) AddMetricRow(label string, values []float64, decimals int, unit, note string) {
	formatted := make([]string, len(values))
	for i, v := range values {
		formatted[i] = formatMetric(v, decimals)
	}
	t.AddRow(label, formatted, unit, note)
}

// String renders labels left-aligned, values right-aligned under their
// headers, then units and notes. An empty table renders as "".
func (t *MetricTable) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	labelWidth, unitWidth := 0, 0
	hasNotes := false
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		labelWidth = max(labelWidth, len(row.Label))
		unitWidth = max(unitWidth, len(row.Unit))
		hasNotes = hasNotes || row.Note != ""
		for i, v := range row.Values {
			if i < len(widths) {
				widths[i] = max(widths[i], len(v))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", labelWidth+2))
	for i, h := range t.Headers {
		fmt.Fprintf(&sb, "%*s  ", widths[i], h)
	}
	if hasNotes {
		if unitWidth > 0 {
			sb.WriteString(strings.Repeat(" ", unitWidth+1))
		}
		sb.WriteString("Notes")
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		fmt.Fprintf(&sb, "%-*s  ", labelWidth, row.Label)
		for i := range t.Headers {
			v := MissingValue
			if i < len(row.Values) && row.Values[i] != "" {
				v = row.Values[i]
			}
			fmt.Fprintf(&sb, "%*s  ", widths[i], v)
		}
		if unitWidth > 0 {
			fmt.Fprintf(&sb, "%-*s ", unitWidth, row.Unit)
		}
		if hasNotes {
			sb.WriteString(row.Note)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// MissingValue is shown for unavailable measurements
const MissingValue = "-"

// DigitalSilenceThreshold is the dBFS floor below which a level reads as silence
const DigitalSilenceThreshold = -120.0

func isDigitalSilence(value float64) bool {
	return math.IsInf(value, -1) || value <= DigitalSilenceThreshold
}

// formatMetric uses fixed decimals, scientific notation below 1e-4, and
// MissingValue for NaN or Inf
func formatMetric(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	if value != 0 && math.Abs(value) < 0.0001 {
		return fmt.Sprintf("%.2e", value)
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatMetricDB shows "< -120" at the silence floor
func formatMetricDB(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 1) {
		return MissingValue
	}
	if isDigitalSilence(value) {
		return "< -120"
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatMetricSigned always shows the sign, for gain changes
func formatMetricSigned(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	return fmt.Sprintf("%+.*f", decimals, value)
}

func formatMetricWithUnit(value float64, decimals int, unit string) string {
	formatted := formatMetric(value, decimals)
	if formatted == MissingValue || unit == "" {
		return formatted
	}
	return formatted + " " + unit
}
