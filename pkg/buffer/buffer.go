// Package buffer holds recent log lines with a bulk-eviction size cap.
package buffer

import "github.com/modoterra/redtail/pkg/core"

// DefaultMaxLines is the default buffer capacity.
const DefaultMaxLines = 5000

// retainNum/retainDen is the share of lines kept on eviction (80%).
const (
	retainNum = 8
	retainDen = 10
)

// LineBuffer is an append-only sequence of lines capped at Max. When a push
// would exceed the cap, the oldest lines are dropped in one step so that
// only floor(Max*0.8) remain, and then the new line is appended.
//
// A LineBuffer has a single writer and is not safe for concurrent use.
type LineBuffer struct {
	lines  []core.LogLine
	max    int
	retain int
}

// New creates a buffer holding at most max lines. A non-positive max uses
// DefaultMaxLines.
func New(max int) *LineBuffer {
	if max <= 0 {
		max = DefaultMaxLines
	}
	return &LineBuffer{
		max:    max,
		retain: max * retainNum / retainDen,
	}
}

// Push appends a line, evicting in bulk if the cap would be exceeded.
func (b *LineBuffer) Push(line core.LogLine) {
	if len(b.lines)+1 > b.max {
		drop := len(b.lines) - b.retain
		kept := make([]core.LogLine, b.retain, b.max)
		copy(kept, b.lines[drop:])
		b.lines = kept
	}
	b.lines = append(b.lines, line)
}

// Reset empties the buffer.
func (b *LineBuffer) Reset() {
	b.lines = nil
}

// Snapshot returns a copy of the buffered lines, oldest first.
func (b *LineBuffer) Snapshot() []core.LogLine {
	out := make([]core.LogLine, len(b.lines))
	copy(out, b.lines)
	return out
}

// Texts returns the line texts, oldest first.
func (b *LineBuffer) Texts() []string {
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		out[i] = l.Line
	}
	return out
}

// Len returns the number of buffered lines.
func (b *LineBuffer) Len() int { return len(b.lines) }

// Max returns the capacity.
func (b *LineBuffer) Max() int { return b.max }
