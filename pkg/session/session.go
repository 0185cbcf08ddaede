// Package session ties the redactor, line buffer, liveness monitor and view
// together. A Session is driven from one goroutine and is not safe for
// concurrent use.
package session

import (
	"strings"
	"time"

	"github.com/modoterra/redtail/pkg/buffer"
	"github.com/modoterra/redtail/pkg/core"
	"github.com/modoterra/redtail/pkg/liveness"
	"github.com/modoterra/redtail/pkg/redact"
	"github.com/modoterra/redtail/pkg/view"
)

// DefaultCopyConfirm is how long the copy confirmation stays visible.
const DefaultCopyConfirm = 1200 * time.Millisecond

// StreamFeed and StreamSeed tag where a buffered line came from.
const (
	StreamFeed = "sse"
	StreamSeed = "seed"
)

// Clipboard receives copied text.
type Clipboard interface {
	WriteAll(text string) error
}

// Config configures a Session.
type Config struct {
	MaxLines int
	// Poll disables liveness tracking; the owner re-renders on a timer.
	Poll        bool
	Liveness    liveness.Config
	CopyConfirm time.Duration
	Autoscroll  bool
	// Redactor defaults to the built-in rule set.
	Redactor *redact.Redactor
}

// Result reports what changed after an input.
type Result struct {
	// Rerendered is set when Rendered() may have changed.
	Rerendered bool
	// ScrollToBottom is set when the owner should scroll to the end.
	ScrollToBottom bool

	BannerChanged bool
	Banner        liveness.Banner

	// ExpireAfter, when non-zero, asks for an EventStatusExpired carrying
	// ExpireSeq after the delay.
	ExpireAfter time.Duration
	ExpireSeq   uint64
}

// Session is one viewing session over a log feed.
type Session struct {
	redactor    *redact.Redactor
	buf         *buffer.LineBuffer
	monitor     *liveness.Monitor
	query       string
	autoscroll  bool
	rendered    string
	copyConfirm time.Duration
	copySeq     uint64
	copied      bool
}

// New creates a session whose heartbeat clock starts at start.
func New(cfg Config, start time.Time) *Session {
	s := &Session{
		redactor:    cfg.Redactor,
		buf:         buffer.New(cfg.MaxLines),
		autoscroll:  cfg.Autoscroll,
		copyConfirm: cfg.CopyConfirm,
	}
	if s.redactor == nil {
		s.redactor = redact.New()
	}
	if s.copyConfirm <= 0 {
		s.copyConfirm = DefaultCopyConfirm
	}
	if !cfg.Poll {
		s.monitor = liveness.New(cfg.Liveness, start)
	}
	return s
}

// Live reports whether liveness tracking is active.
func (s *Session) Live() bool { return s.monitor != nil }

// StartFeed marks the moment the live feed is opened. Liveness timeouts are
// measured from here, not from New. No-op for poll sessions.
func (s *Session) StartFeed(at time.Time) {
	if s.monitor != nil {
		s.monitor.StartClock(at)
	}
}

// Status returns the connection status. Poll sessions always report
// connected.
func (s *Session) Status() core.ConnectionStatus {
	if s.monitor == nil {
		return core.StatusConnected
	}
	return s.monitor.Status()
}

// Banner returns the current status banner.
func (s *Session) Banner() liveness.Banner {
	if s.monitor == nil {
		return liveness.Banner{}
	}
	return s.monitor.Banner()
}

// Seed redacts and buffers lines already present at startup.
func (s *Session) Seed(lines []string) Result {
	for _, l := range lines {
		s.buf.Push(core.LogLine{Stream: StreamSeed, Line: s.redactor.Redact(l)})
	}
	return s.render()
}

// SeedText splits text on newlines and seeds every line. Empty text seeds
// nothing.
func (s *Session) SeedText(text string) Result {
	if text == "" {
		return s.render()
	}
	return s.Seed(strings.Split(text, "\n"))
}

// Reload replaces the buffer with a fresh snapshot. Used by poll sessions.
func (s *Session) Reload(lines []string) Result {
	s.buf.Reset()
	return s.Seed(lines)
}

// Handle processes one event.
func (s *Session) Handle(ev core.Event) Result {
	var res Result
	rerender := false

	if s.monitor != nil {
		out := s.monitor.HandleEvent(ev)
		if out.ResetBuffer {
			s.buf.Reset()
			rerender = true
		}
		res.BannerChanged = out.BannerChanged
		res.Banner = out.Banner
		res.ExpireAfter = out.ExpireAfter
		res.ExpireSeq = out.ExpireSeq
	} else if ev.Kind == core.EventTick {
		rerender = true
	}

	if ev.Kind == core.EventData && ev.Data != "" {
		s.buf.Push(core.LogLine{
			Stream:   StreamFeed,
			TsUnixMs: ev.At.UnixMilli(),
			Line:     s.redactor.Redact(ev.Data),
		})
		rerender = true
	}

	if rerender {
		r := s.render()
		res.Rerendered = r.Rerendered
		res.ScrollToBottom = r.ScrollToBottom
	}
	return res
}

// Query returns the current filter.
func (s *Session) Query() string { return s.query }

// SetQuery changes the filter and re-renders.
func (s *Session) SetQuery(q string) Result {
	s.query = q
	return s.render()
}

// Autoscroll reports whether the view follows new output.
func (s *Session) Autoscroll() bool { return s.autoscroll }

// ToggleAutoscroll flips autoscroll and returns the new value.
func (s *Session) ToggleAutoscroll() bool {
	s.autoscroll = !s.autoscroll
	return s.autoscroll
}

// Rendered returns the currently visible text.
func (s *Session) Rendered() string { return s.rendered }

// Lines returns the number of buffered lines.
func (s *Session) Lines() int { return s.buf.Len() }

// Copy writes the rendered text to cb. On success it returns how long to
// show the confirmation and a token for ClearCopied. Failures are dropped.
func (s *Session) Copy(cb Clipboard) (time.Duration, uint64, bool) {
	if cb == nil {
		return 0, 0, false
	}
	if err := cb.WriteAll(s.rendered); err != nil {
		return 0, 0, false
	}
	s.copySeq++
	s.copied = true
	return s.copyConfirm, s.copySeq, true
}

// Copied reports whether the copy confirmation is showing.
func (s *Session) Copied() bool { return s.copied }

// ClearCopied hides the confirmation if seq is the latest copy.
func (s *Session) ClearCopied(seq uint64) {
	if seq == s.copySeq {
		s.copied = false
	}
}

func (s *Session) render() Result {
	s.rendered = view.Render(s.buf.Snapshot(), s.query)
	return Result{Rerendered: true, ScrollToBottom: s.autoscroll}
}
