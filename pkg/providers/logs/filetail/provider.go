// Package filetail follows a log file and streams appended lines.
package filetail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/modoterra/redtail/pkg/core"
)

// DefaultPollInterval is how often the file is re-checked when no change
// notification arrives.
const DefaultPollInterval = 500 * time.Millisecond

// Stream is the LogLine stream tag for file lines.
const Stream = "file"

// Tailer follows one file. Each Subscribe opens an independent follower.
type Tailer struct {
	path      string
	poll      time.Duration
	fromStart bool
	logger    *slog.Logger
}

// Option configures a Tailer.
type Option func(*Tailer)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(t *Tailer) {
		if d > 0 {
			t.poll = d
		}
	}
}

// FromStart makes followers read the existing content first instead of
// starting at the end of the file.
func FromStart() Option {
	return func(t *Tailer) { t.fromStart = true }
}

// New creates a tailer for path.
func New(path string, logger *slog.Logger, opts ...Option) *Tailer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tailer{path: path, poll: DefaultPollInterval, logger: logger}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Name implements core.LineSource.
func (t *Tailer) Name() string { return "filetail" }

// Path returns the followed file.
func (t *Tailer) Path() string { return t.path }

// Subscribe starts following the file. Lines are delivered without their
// trailing whitespace; a final line without a newline is held back until it
// is completed. The channel is closed when ctx is cancelled.
func (t *Tailer) Subscribe(ctx context.Context) (<-chan core.LogLine, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", t.path, err)
	}
	if !t.fromStart {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return nil, fmt.Errorf("seek %s: %w", t.path, err)
		}
	}

	var wake <-chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(t.path); err != nil {
			t.logger.Debug("fsnotify unavailable, polling", "path", t.path, "error", err)
			watcher.Close()
			watcher = nil
		} else {
			wake = watcher.Events
		}
	} else {
		watcher = nil
	}

	ch := make(chan core.LogLine, 100)
	go func() {
		defer close(ch)
		defer f.Close()
		if watcher != nil {
			defer watcher.Close()
		}
		t.follow(ctx, f, wake, ch)
	}()

	t.logger.Debug("tailing file", "path", t.path, "notify", watcher != nil)
	return ch, nil
}

func (t *Tailer) follow(ctx context.Context, f *os.File, wake <-chan fsnotify.Event, ch chan<- core.LogLine) {
	reader := bufio.NewReader(f)
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	var partial strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			partial.WriteString(line)
		}
		if err == nil {
			text := strings.TrimRight(partial.String(), " \t\r\n")
			partial.Reset()
			entry := core.LogLine{
				Source:   t.path,
				TsUnixMs: time.Now().UnixMilli(),
				Stream:   Stream,
				Line:     text,
			}
			select {
			case ch <- entry:
			case <-ctx.Done():
				return
			}
			continue
		}
		if !errors.Is(err, io.EOF) {
			t.logger.Warn("read failed", "path", t.path, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case ev, ok := <-wake:
			if !ok {
				wake = nil
			} else if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				t.logger.Debug("file replaced, polling", "path", t.path)
			}
		case <-ticker.C:
		}

		if truncated(f) {
			t.logger.Info("file truncated, rewinding", "path", t.path)
			if _, err := f.Seek(0, io.SeekStart); err == nil {
				reader.Reset(f)
				partial.Reset()
			}
		}
	}
}

// truncated reports whether the file shrank below the read offset.
func truncated(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return false
	}
	return info.Size() < pos
}

// ReadLast returns up to n trailing lines of the file at path, without
// trailing whitespace.
func ReadLast(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return LastLines(f, n)
}

// LastLines returns up to n trailing lines read from r.
func LastLines(r io.Reader, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	ring := make([]string, 0, n)
	start := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if len(ring) < n {
			ring = append(ring, line)
			continue
		}
		ring[start] = line
		start = (start + 1) % n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return append(ring[start:], ring[:start]...), nil
}
