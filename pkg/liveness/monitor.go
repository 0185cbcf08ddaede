// Package liveness infers feed connection status from explicit up/down
// signals, transport errors, and heartbeat timing.
package liveness

import (
	"time"

	"github.com/modoterra/redtail/pkg/core"
)

const (
	DefaultHeartbeatTimeout = 5 * time.Second
	DefaultCheckInterval    = time.Second
	DefaultReconnectedHold  = 1500 * time.Millisecond
)

// Banner texts.
const (
	MsgDisconnected = "server connection lost — reconnecting"
	MsgReconnected  = "reconnected"
)

// Tone colors a banner.
type Tone int

const (
	ToneNone Tone = iota
	ToneOK
	ToneWarn
)

// Banner is the status text shown above the log output.
type Banner struct {
	Text string
	Tone Tone
}

// Config tunes the monitor. Zero fields take the defaults.
type Config struct {
	HeartbeatTimeout time.Duration
	ReconnectedHold  time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.ReconnectedHold <= 0 {
		c.ReconnectedHold = DefaultReconnectedHold
	}
	return c
}

// Outcome describes the side effects of one event.
type Outcome struct {
	// ResetBuffer asks the owner to empty the line buffer.
	ResetBuffer bool
	// BannerChanged is set when Banner should replace the displayed text.
	BannerChanged bool
	Banner        Banner
	// ExpireAfter, when non-zero, asks the owner to deliver an
	// EventStatusExpired carrying ExpireSeq after that delay.
	ExpireAfter time.Duration
	ExpireSeq   uint64
	// From and To are the status before and after the event.
	From, To core.ConnectionStatus
}

// Changed reports whether the event moved the status.
func (o Outcome) Changed() bool { return o.From != o.To }

// Monitor is the liveness state machine. It starts connected and never
// terminates. It is driven from a single goroutine.
type Monitor struct {
	cfg      Config
	status   core.ConnectionStatus
	lastBeat time.Time
	banner   Banner
	seq      uint64
}

// New creates a monitor whose heartbeat clock starts at start.
func New(cfg Config, start time.Time) *Monitor {
	return &Monitor{
		cfg:      cfg.withDefaults(),
		status:   core.StatusConnected,
		lastBeat: start,
	}
}

// Status returns the current connection status.
func (m *Monitor) Status() core.ConnectionStatus { return m.status }

// Banner returns the current status banner.
func (m *Monitor) Banner() Banner { return m.banner }

// LastBeat returns the heartbeat clock.
func (m *Monitor) LastBeat() time.Time { return m.lastBeat }

// StartClock restarts the heartbeat clock at at. Call it when the feed
// subscription opens so time spent before then is not counted as silence.
func (m *Monitor) StartClock(at time.Time) { m.lastBeat = at }

// HeartbeatTimeout returns the effective silence threshold.
func (m *Monitor) HeartbeatTimeout() time.Duration { return m.cfg.HeartbeatTimeout }

// HandleEvent applies one event and returns its side effects.
func (m *Monitor) HandleEvent(ev core.Event) Outcome {
	out := Outcome{From: m.status}

	switch ev.Kind {
	case core.EventData, core.EventPing:
		m.lastBeat = ev.At

	case core.EventSourceDown:
		// Every down signal clears the buffer; only the banner is deduplicated.
		out.ResetBuffer = true
		if m.status != core.StatusDisconnected {
			m.goDown(&out)
		}

	case core.EventTransportError:
		if m.status != core.StatusDisconnected {
			out.ResetBuffer = true
			m.goDown(&out)
		}

	case core.EventTick:
		if m.status != core.StatusDisconnected && ev.At.Sub(m.lastBeat) > m.cfg.HeartbeatTimeout {
			out.ResetBuffer = true
			m.goDown(&out)
		}

	case core.EventSourceUp:
		if m.status == core.StatusDisconnected {
			m.status = core.StatusReconnected
			m.seq++
			m.setBanner(&out, Banner{Text: MsgReconnected, Tone: ToneOK})
			out.ExpireAfter = m.cfg.ReconnectedHold
			out.ExpireSeq = m.seq
		}

	case core.EventStatusExpired:
		if ev.Seq == m.seq && m.status == core.StatusReconnected {
			m.status = core.StatusConnected
			m.setBanner(&out, Banner{})
		}
	}

	out.To = m.status
	return out
}

func (m *Monitor) goDown(out *Outcome) {
	m.status = core.StatusDisconnected
	m.seq++
	m.setBanner(out, Banner{Text: MsgDisconnected, Tone: ToneWarn})
}

func (m *Monitor) setBanner(out *Outcome, b Banner) {
	m.banner = b
	out.BannerChanged = true
	out.Banner = b
}
