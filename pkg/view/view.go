// Package view derives the visible log text from buffered lines and a
// case-insensitive substring filter.
package view

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/modoterra/redtail/pkg/core"
)

// Filter returns the texts of lines whose lowercase form contains the
// lowercase query, in original order. An empty query keeps every line.
func Filter(lines []core.LogLine, query string) []string {
	q := strings.ToLower(query)
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if q == "" || strings.Contains(strings.ToLower(l.Line), q) {
			out = append(out, l.Line)
		}
	}
	return out
}

// Render joins the filtered lines with newlines.
func Render(lines []core.LogLine, query string) string {
	return strings.Join(Filter(lines, query), "\n")
}

// Clip truncates every line of text to width display cells. Lines that are
// cut end with "...". A non-positive width returns text unchanged.
func Clip(text string, width int) string {
	if width <= 0 || text == "" {
		return text
	}
	rows := strings.Split(text, "\n")
	for i, r := range rows {
		if runewidth.StringWidth(r) > width {
			rows[i] = runewidth.Truncate(r, width, "...")
		}
	}
	return strings.Join(rows, "\n")
}
