// Package sse implements the Server-Sent Events framing used between
// redtaild and the viewer.
package sse

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"time"
)

// MaxLineSize bounds a single SSE field line.
const MaxLineSize = 1024 * 1024

// Message is one dispatched SSE event.
type Message struct {
	// Event is the event name; empty for unnamed (data) messages.
	Event string
	Data  string
	ID    string
}

// Reader parses Server-Sent Events from a stream.
type Reader struct {
	reader *bufio.Reader
	lastID string
	retry  time.Duration
	// skipLF is set after a CR terminator so a following LF is consumed as
	// part of the same CRLF pair.
	skipLF bool
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Retry returns the most recent reconnection delay sent by the server, or
// zero if none was sent.
func (s *Reader) Retry() time.Duration { return s.retry }

// LastID returns the last event ID seen on the stream.
func (s *Reader) LastID() string { return s.lastID }

// ReadEvent reads the next dispatched event. Blocks without any data field
// (such as a lone retry field) are consumed without being returned.
// Returns io.EOF when the stream ends; a block cut off before its closing
// blank line is discarded.
func (s *Reader) ReadEvent() (Message, error) {
	var (
		eventType string
		data      [][]byte
		hasData   bool
	)

	for {
		line, err := s.readLine()
		if err != nil {
			return Message{}, err
		}

		if len(line) == 0 {
			if hasData {
				return s.dispatch(eventType, data), nil
			}
			eventType = ""
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field = line[:i]
			value = line[i+1:]
			if len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
		}

		switch string(field) {
		case "event":
			eventType = string(value)
		case "data":
			data = append(data, append([]byte(nil), value...))
			hasData = true
		case "id":
			if bytes.IndexByte(value, 0) < 0 {
				s.lastID = string(value)
			}
		case "retry":
			if ms, err := strconv.Atoi(string(value)); err == nil && ms >= 0 {
				s.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

func (s *Reader) dispatch(eventType string, data [][]byte) Message {
	return Message{
		Event: eventType,
		Data:  string(bytes.Join(data, []byte("\n"))),
		ID:    s.lastID,
	}
}

// readLine returns the next line without its terminator. CR, LF and CRLF
// all end a line. An unterminated line at EOF is dropped.
func (s *Reader) readLine() ([]byte, error) {
	var buf []byte
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return nil, err
		}
		if s.skipLF {
			s.skipLF = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case '\r':
			s.skipLF = true
			return buf, nil
		case '\n':
			return buf, nil
		}
		if len(buf) >= MaxLineSize {
			return nil, ErrLineTooLong
		}
		buf = append(buf, b)
	}
}
