package cli

import (
	"strings"
	"time"

	"github.com/fatih/color"
)

// stateColor picks the report color for a run or task state.
func stateColor(state string) *color.Color {
	switch state {
	case "completed":
		return color.New(color.FgGreen)
	case "failed":
		return color.New(color.FgRed)
	case "cancelled":
		return color.New(color.FgYellow)
	case "running":
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}

// formatSpan renders the duration between two optional timestamps.
func formatSpan(start, finish *time.Time) string {
	if start == nil || finish == nil {
		return "-"
	}
	return finish.Sub(*start).Round(time.Millisecond).String()
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n") + "\n"
}
