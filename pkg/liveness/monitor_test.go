package liveness

import (
	"errors"
	"testing"
	"time"

	"github.com/modoterra/redtail/pkg/core"
)

var t0 = time.Unix(1700000000, 0)

func at(d time.Duration) time.Time { return t0.Add(d) }

func newMonitor() *Monitor {
	return New(Config{}, t0)
}

func TestInitialState(t *testing.T) {
	m := newMonitor()
	if m.Status() != core.StatusConnected {
		t.Errorf("status: got %s", m.Status())
	}
	if m.Banner().Text != "" {
		t.Errorf("banner: got %q", m.Banner().Text)
	}
	if m.HeartbeatTimeout() != DefaultHeartbeatTimeout {
		t.Errorf("timeout: got %v", m.HeartbeatTimeout())
	}
}

func TestSourceDown(t *testing.T) {
	m := newMonitor()
	out := m.HandleEvent(core.Event{Kind: core.EventSourceDown, At: at(time.Second)})
	if !out.ResetBuffer {
		t.Error("expected buffer reset")
	}
	if !out.BannerChanged || out.Banner.Text != MsgDisconnected || out.Banner.Tone != ToneWarn {
		t.Errorf("banner: %+v", out)
	}
	if out.From != core.StatusConnected || out.To != core.StatusDisconnected || !out.Changed() {
		t.Errorf("transition: %s -> %s", out.From, out.To)
	}
}

func TestRepeatedSourceDownResetsButDoesNotRepeatBanner(t *testing.T) {
	m := newMonitor()
	m.HandleEvent(core.Event{Kind: core.EventSourceDown, At: at(0)})
	out := m.HandleEvent(core.Event{Kind: core.EventSourceDown, At: at(time.Second)})
	if !out.ResetBuffer {
		t.Error("every source_down must reset the buffer")
	}
	if out.BannerChanged {
		t.Error("banner should not be set again while disconnected")
	}
	if m.Banner().Text != MsgDisconnected {
		t.Errorf("banner: got %q", m.Banner().Text)
	}
}

func TestTransportErrorDeduplicated(t *testing.T) {
	m := newMonitor()
	ev := core.Event{Kind: core.EventTransportError, At: at(0), Err: errors.New("eof")}
	first := m.HandleEvent(ev)
	if !first.ResetBuffer || !first.BannerChanged {
		t.Errorf("first error: %+v", first)
	}
	second := m.HandleEvent(ev)
	if second.ResetBuffer || second.BannerChanged {
		t.Errorf("repeated error should be a no-op: %+v", second)
	}
}

func TestSourceUpAfterDown(t *testing.T) {
	m := newMonitor()
	m.HandleEvent(core.Event{Kind: core.EventSourceDown, At: at(0)})
	out := m.HandleEvent(core.Event{Kind: core.EventSourceUp, At: at(time.Second)})
	if out.Banner.Text != MsgReconnected || out.Banner.Tone != ToneOK {
		t.Errorf("banner: %+v", out.Banner)
	}
	if out.ExpireAfter != DefaultReconnectedHold || out.ExpireSeq == 0 {
		t.Errorf("expiry: %v seq %d", out.ExpireAfter, out.ExpireSeq)
	}
	if m.Status() != core.StatusReconnected || !m.Status().Live() {
		t.Errorf("status: got %s", m.Status())
	}

	cleared := m.HandleEvent(core.Event{Kind: core.EventStatusExpired, Seq: out.ExpireSeq})
	if !cleared.BannerChanged || cleared.Banner.Text != "" {
		t.Errorf("expected banner cleared: %+v", cleared)
	}
	if m.Status() != core.StatusConnected {
		t.Errorf("status after clear: got %s", m.Status())
	}
}

func TestSourceUpWhileConnectedIsNoop(t *testing.T) {
	m := newMonitor()
	out := m.HandleEvent(core.Event{Kind: core.EventSourceUp, At: at(0)})
	if out.BannerChanged || out.Changed() || out.ExpireAfter != 0 {
		t.Errorf("expected no-op: %+v", out)
	}
}

func TestStaleExpiryDoesNotClearNewerBanner(t *testing.T) {
	m := newMonitor()
	m.HandleEvent(core.Event{Kind: core.EventSourceDown, At: at(0)})
	up := m.HandleEvent(core.Event{Kind: core.EventSourceUp, At: at(time.Second)})
	m.HandleEvent(core.Event{Kind: core.EventSourceDown, At: at(1200 * time.Millisecond)})

	out := m.HandleEvent(core.Event{Kind: core.EventStatusExpired, Seq: up.ExpireSeq})
	if out.BannerChanged {
		t.Error("stale expiry cleared the disconnected banner")
	}
	if m.Banner().Text != MsgDisconnected {
		t.Errorf("banner: got %q", m.Banner().Text)
	}
}

func TestHeartbeatTimeout(t *testing.T) {
	m := newMonitor()

	out := m.HandleEvent(core.Event{Kind: core.EventTick, At: at(5 * time.Second)})
	if out.ResetBuffer || out.Changed() {
		t.Error("exactly 5s of silence is not a timeout")
	}

	out = m.HandleEvent(core.Event{Kind: core.EventTick, At: at(5*time.Second + time.Millisecond)})
	if !out.ResetBuffer || out.To != core.StatusDisconnected || out.Banner.Text != MsgDisconnected {
		t.Errorf("expected timeout disconnect: %+v", out)
	}

	out = m.HandleEvent(core.Event{Kind: core.EventTick, At: at(10 * time.Second)})
	if out.ResetBuffer || out.BannerChanged {
		t.Error("ticks while disconnected should not reset again")
	}
}

func TestStartClock(t *testing.T) {
	m := newMonitor()
	m.StartClock(at(4 * time.Second))
	if !m.LastBeat().Equal(at(4 * time.Second)) {
		t.Fatalf("last beat = %v", m.LastBeat())
	}
	if out := m.HandleEvent(core.Event{Kind: core.EventTick, At: at(9 * time.Second)}); out.ResetBuffer {
		t.Error("timeout measured from before the clock was started")
	}
}

func TestHeartbeatsKeepAlive(t *testing.T) {
	m := newMonitor()
	for i := 1; i <= 20; i++ {
		now := at(time.Duration(i) * time.Second)
		kind := core.EventPing
		if i%2 == 0 {
			kind = core.EventData
		}
		m.HandleEvent(core.Event{Kind: kind, At: now})
		if out := m.HandleEvent(core.Event{Kind: core.EventTick, At: now}); out.Changed() {
			t.Fatalf("tick %d: unexpected transition", i)
		}
	}
	if !m.LastBeat().Equal(at(20 * time.Second)) {
		t.Errorf("last beat: got %v", m.LastBeat())
	}
}

func TestPingDoesNotClearDisconnected(t *testing.T) {
	m := newMonitor()
	m.HandleEvent(core.Event{Kind: core.EventSourceDown, At: at(0)})
	out := m.HandleEvent(core.Event{Kind: core.EventPing, At: at(time.Second)})
	if out.BannerChanged || m.Status() != core.StatusDisconnected {
		t.Error("ping must not change status")
	}
}

func TestTimeoutDuringReconnectedBanner(t *testing.T) {
	m := newMonitor()
	m.HandleEvent(core.Event{Kind: core.EventSourceDown, At: at(0)})
	m.HandleEvent(core.Event{Kind: core.EventSourceUp, At: at(time.Second)})
	out := m.HandleEvent(core.Event{Kind: core.EventTick, At: at(7 * time.Second)})
	if out.To != core.StatusDisconnected || !out.ResetBuffer {
		t.Errorf("reconnected state should still time out: %+v", out)
	}
}

func TestConfigurableTimeout(t *testing.T) {
	m := New(Config{HeartbeatTimeout: 2 * time.Second, ReconnectedHold: time.Second}, t0)
	out := m.HandleEvent(core.Event{Kind: core.EventTick, At: at(3 * time.Second)})
	if out.To != core.StatusDisconnected {
		t.Error("expected disconnect after custom timeout")
	}
	up := m.HandleEvent(core.Event{Kind: core.EventSourceUp, At: at(4 * time.Second)})
	if up.ExpireAfter != time.Second {
		t.Errorf("hold: got %v", up.ExpireAfter)
	}
}
