package session

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/modoterra/redtail/pkg/core"
	"github.com/modoterra/redtail/pkg/liveness"
)

var t0 = time.Unix(1700000000, 0)

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

func data(s string, d time.Duration) core.Event {
	return core.Event{Kind: core.EventData, Data: s, At: t0.Add(d)}
}

func TestDataIsRedactedAndRendered(t *testing.T) {
	s := New(Config{Autoscroll: true}, t0)
	res := s.Handle(data("User admin@example.com logged in from 10.0.0.5", time.Second))
	if !res.Rerendered || !res.ScrollToBottom {
		t.Errorf("result: %+v", res)
	}
	if got, want := s.Rendered(), "User [EMAIL] logged in from [IP]"; got != want {
		t.Errorf("rendered: got %q, want %q", got, want)
	}
}

func TestSeedRedactsEachLine(t *testing.T) {
	s := New(Config{}, t0)
	s.SeedText("from 10.0.0.1\nplain")
	if got, want := s.Rendered(), "from [IP]\nplain"; got != want {
		t.Errorf("rendered: got %q, want %q", got, want)
	}
	if s.Lines() != 2 {
		t.Errorf("lines: got %d", s.Lines())
	}

	empty := New(Config{}, t0)
	empty.SeedText("")
	if empty.Lines() != 0 {
		t.Errorf("empty seed buffered %d lines", empty.Lines())
	}
}

func TestFilterAndRender(t *testing.T) {
	s := New(Config{}, t0)
	for i, l := range []string{"a", "ERROR: bad", "ok"} {
		s.Handle(data(l, time.Duration(i)*time.Millisecond))
	}
	s.SetQuery("error")
	if s.Rendered() != "ERROR: bad" {
		t.Errorf("rendered: got %q", s.Rendered())
	}
	s.SetQuery("")
	if s.Rendered() != "a\nERROR: bad\nok" {
		t.Errorf("rendered: got %q", s.Rendered())
	}
}

func TestEmptyDataRefreshesHeartbeatOnly(t *testing.T) {
	s := New(Config{}, t0)
	res := s.Handle(data("", 4*time.Second))
	if res.Rerendered || s.Lines() != 0 {
		t.Error("empty data must not add a line")
	}
	tick := s.Handle(core.Event{Kind: core.EventTick, At: t0.Add(8 * time.Second)})
	if tick.BannerChanged {
		t.Error("empty data should have refreshed the heartbeat")
	}
}

func TestSourceDownClearsBuffer(t *testing.T) {
	s := New(Config{}, t0)
	s.Handle(data("one", 0))
	s.Handle(data("two", 0))

	res := s.Handle(core.Event{Kind: core.EventSourceDown, At: t0})
	if s.Lines() != 0 || s.Rendered() != "" {
		t.Errorf("buffer not reset: %d lines", s.Lines())
	}
	if !res.Rerendered || res.Banner.Text != liveness.MsgDisconnected {
		t.Errorf("result: %+v", res)
	}
	if s.Status() != core.StatusDisconnected {
		t.Errorf("status: %s", s.Status())
	}

	up := s.Handle(core.Event{Kind: core.EventSourceUp, At: t0.Add(time.Second)})
	if up.Banner.Text != liveness.MsgReconnected || up.ExpireAfter == 0 {
		t.Errorf("up: %+v", up)
	}
	cleared := s.Handle(core.Event{Kind: core.EventStatusExpired, Seq: up.ExpireSeq})
	if !cleared.BannerChanged || s.Banner().Text != "" {
		t.Errorf("banner not cleared: %+v", cleared)
	}
}

func TestDataWhileDisconnectedIsBuffered(t *testing.T) {
	s := New(Config{}, t0)
	s.Handle(core.Event{Kind: core.EventTransportError, At: t0, Err: errors.New("eof")})
	s.Handle(data("late", time.Second))
	if s.Rendered() != "late" {
		t.Errorf("rendered: %q", s.Rendered())
	}
	if s.Banner().Text != liveness.MsgDisconnected {
		t.Errorf("banner: %q", s.Banner().Text)
	}
}

func TestSilentGapResets(t *testing.T) {
	s := New(Config{}, t0)
	s.Handle(data("x", 0))
	res := s.Handle(core.Event{Kind: core.EventTick, At: t0.Add(5001 * time.Millisecond)})
	if s.Lines() != 0 || res.Banner.Text != liveness.MsgDisconnected {
		t.Errorf("expected timeout reset: %+v", res)
	}
}

func TestSlowSeedDoesNotTimeOut(t *testing.T) {
	s := New(Config{}, t0)
	// Seeding took longer than the heartbeat timeout.
	s.Seed([]string{"seeded"})
	s.StartFeed(t0.Add(6 * time.Second))

	res := s.Handle(core.Event{Kind: core.EventTick, At: t0.Add(7 * time.Second)})
	if s.Lines() != 1 || res.BannerChanged || s.Status() != core.StatusConnected {
		t.Errorf("seeded lines lost to a false timeout: lines=%d res=%+v", s.Lines(), res)
	}

	s.Handle(core.Event{Kind: core.EventTick, At: t0.Add(11*time.Second + time.Millisecond)})
	if s.Status() != core.StatusDisconnected {
		t.Errorf("silence after the feed opened should still time out, status=%s", s.Status())
	}
}

func TestBufferCap(t *testing.T) {
	s := New(Config{MaxLines: 10}, t0)
	for i := 1; i <= 11; i++ {
		s.Handle(data(strconv.Itoa(i), 0))
	}
	if s.Lines() != 9 {
		t.Errorf("lines: got %d, want 9", s.Lines())
	}
}

func TestPollSession(t *testing.T) {
	s := New(Config{Poll: true}, t0)
	if s.Live() {
		t.Fatal("poll session should not track liveness")
	}
	s.Seed([]string{"a"})
	res := s.Handle(core.Event{Kind: core.EventTick, At: t0.Add(time.Hour)})
	if !res.Rerendered || res.BannerChanged {
		t.Errorf("tick: %+v", res)
	}
	if s.Lines() != 1 || s.Status() != core.StatusConnected {
		t.Error("poll tick must not reset the buffer")
	}
	s.Reload([]string{"b", "c 192.168.1.1"})
	if s.Rendered() != "b\nc [IP]" {
		t.Errorf("rendered: %q", s.Rendered())
	}
}

func TestAutoscrollToggle(t *testing.T) {
	s := New(Config{Autoscroll: true}, t0)
	if s.ToggleAutoscroll() {
		t.Error("expected autoscroll off")
	}
	if res := s.SetQuery("x"); res.ScrollToBottom {
		t.Error("scrolled with autoscroll off")
	}
}

func TestCopy(t *testing.T) {
	s := New(Config{}, t0)
	s.Seed([]string{"keep", "drop"})
	s.SetQuery("keep")

	cb := &fakeClipboard{}
	d, seq, ok := s.Copy(cb)
	if !ok || d != DefaultCopyConfirm || !s.Copied() {
		t.Fatalf("copy: %v %v %v", d, seq, ok)
	}
	if cb.text != "keep" {
		t.Errorf("copied %q, want filtered text", cb.text)
	}

	_, seq2, _ := s.Copy(cb)
	s.ClearCopied(seq)
	if !s.Copied() {
		t.Error("stale clear hid the newer confirmation")
	}
	s.ClearCopied(seq2)
	if s.Copied() {
		t.Error("confirmation not cleared")
	}
}

func TestCopyFailureIsSilent(t *testing.T) {
	s := New(Config{}, t0)
	if _, _, ok := s.Copy(&fakeClipboard{err: errors.New("no display")}); ok {
		t.Error("expected failure")
	}
	if s.Copied() {
		t.Error("confirmation shown after failure")
	}
	if _, _, ok := s.Copy(nil); ok {
		t.Error("nil clipboard should fail")
	}
}
