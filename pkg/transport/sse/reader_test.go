package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func readAll(t *testing.T, input string) ([]Message, *Reader) {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var msgs []Message
	for {
		m, err := r.ReadEvent()
		if errors.Is(err, io.EOF) {
			return msgs, r
		}
		if err != nil {
			t.Fatalf("ReadEvent: %v", err)
		}
		msgs = append(msgs, m)
	}
}

func TestReadEvent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Message
	}{
		{
			name:  "unnamed data",
			input: "data: hello\n\n",
			want:  []Message{{Data: "hello"}},
		},
		{
			name:  "named events",
			input: "event: source_up\ndata: 1\n\nevent: ping\ndata: 1700000000\n\n",
			want:  []Message{{Event: "source_up", Data: "1"}, {Event: "ping", Data: "1700000000"}},
		},
		{
			name:  "multi-line data",
			input: "data: a\ndata: b\n\n",
			want:  []Message{{Data: "a\nb"}},
		},
		{
			name:  "only one leading space stripped",
			input: "data:  indented\ndata:tight\n\n",
			want:  []Message{{Data: " indented\ntight"}},
		},
		{
			name:  "empty data still dispatched",
			input: "data: \n\n",
			want:  []Message{{Data: ""}},
		},
		{
			name:  "retry-only block skipped",
			input: "retry: 2000\n\ndata: x\n\n",
			want:  []Message{{Data: "x"}},
		},
		{
			name:  "comments ignored",
			input: ": keepalive\n\ndata: x\n\n",
			want:  []Message{{Data: "x"}},
		},
		{
			name:  "crlf line endings",
			input: "event: ping\r\ndata: 1\r\n\r\n",
			want:  []Message{{Event: "ping", Data: "1"}},
		},
		{
			name:  "event name without data is dropped",
			input: "event: source_down\n\ndata: y\n\n",
			want:  []Message{{Data: "y"}},
		},
		{
			name:  "cr line endings",
			input: "data: a\rdata: b\r\r",
			want:  []Message{{Data: "a\nb"}},
		},
		{
			name:  "mixed line endings",
			input: "event: ping\rdata: 1\r\n\ndata: x\n\r\n",
			want:  []Message{{Event: "ping", Data: "1"}, {Data: "x"}},
		},
		{
			name:  "unterminated block at eof discarded",
			input: "data: complete\n\ndata: partial",
			want:  []Message{{Data: "complete"}},
		},
		{
			name:  "block without closing blank line discarded",
			input: "data: complete\n\ndata: partial\n",
			want:  []Message{{Data: "complete"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := readAll(t, tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d messages %+v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i].Event != tt.want[i].Event || got[i].Data != tt.want[i].Data {
					t.Errorf("message %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReaderRetryAndID(t *testing.T) {
	_, r := readAll(t, "retry: 1500\n\nid: 42\ndata: x\n\nretry: bogus\n\n")
	if r.Retry() != 1500*time.Millisecond {
		t.Errorf("retry: got %v", r.Retry())
	}
	if r.LastID() != "42" {
		t.Errorf("last id: got %q", r.LastID())
	}
}

func TestReaderLineTooLong(t *testing.T) {
	input := "data: " + strings.Repeat("x", MaxLineSize+1) + "\n\n"
	r := NewReader(strings.NewReader(input))
	if _, err := r.ReadEvent(); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Retry(2 * time.Second); err != nil {
		t.Fatal(err)
	}
	if err := w.Event("source_up", "1"); err != nil {
		t.Fatal(err)
	}
	if err := w.Comment("hi"); err != nil {
		t.Fatal(err)
	}
	if err := w.Data("line one\nline two"); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(buf.String(), "retry: 2000\n\nevent: source_up\ndata: 1\n\n") {
		t.Errorf("unexpected framing: %q", buf.String())
	}

	msgs, r := readAll(t, buf.String())
	if r.Retry() != 2*time.Second {
		t.Errorf("retry: got %v", r.Retry())
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].Event != "source_up" || msgs[1].Data != "line one\nline two" {
		t.Errorf("messages: %+v", msgs)
	}
}
