package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderProgress draws a fixed-width bar for frac in 0..1
func RenderProgress(frac float64, width int) string {
	if width <= 0 {
		return ""
	}
	frac = min(max(frac, 0), 1)
	filled := int(frac*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// RenderCell renders a fixed-width grid cell holding a symbol and a label
func RenderCell(color lipgloss.Color, symbol rune, label string, width int, highlight bool) string {
	style := lipgloss.NewStyle().Foreground(color).Width(width).MaxWidth(width)
	if highlight {
		style = style.Reverse(true)
	}
	return style.Render(string(symbol) + " " + label)
}

// Truncate shortens s to n runes
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
