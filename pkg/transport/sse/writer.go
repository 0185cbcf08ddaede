package sse

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrLineTooLong is returned by Reader when a field line exceeds MaxLineSize.
var ErrLineTooLong = errors.New("sse: line too long")

// Writer frames Server-Sent Events onto w, flushing after every event when
// w supports it.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// Retry tells the client how long to wait before reconnecting.
func (s *Writer) Retry(d time.Duration) error {
	return s.write(fmt.Sprintf("retry: %d\n\n", d.Milliseconds()))
}

// Data sends an unnamed message.
func (s *Writer) Data(data string) error {
	return s.Event("", data)
}

// Event sends a named message. Multi-line data is split across data fields.
func (s *Writer) Event(name, data string) error {
	var b strings.Builder
	if name != "" {
		b.WriteString("event: ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return s.write(b.String())
}

// Comment sends a comment line, which clients ignore.
func (s *Writer) Comment(text string) error {
	return s.write(": " + text + "\n\n")
}

func (s *Writer) write(frame string) error {
	if _, err := io.WriteString(s.w, frame); err != nil {
		return fmt.Errorf("sse write: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
