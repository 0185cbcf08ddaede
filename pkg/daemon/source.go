package daemon

import (
	"sync"
	"time"
)

// DefaultSourceTimeout is how long the log source may stay silent before it
// is reported down.
const DefaultSourceTimeout = 7 * time.Second

// SourceTracker records when the log producer last checked in.
type SourceTracker struct {
	mu      sync.RWMutex
	last    time.Time
	timeout time.Duration
	now     func() time.Time
}

// NewSourceTracker creates a tracker. The source starts down.
func NewSourceTracker(timeout time.Duration) *SourceTracker {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return &SourceTracker{timeout: timeout, now: time.Now}
}

// Beat marks the source alive now and returns the timestamp.
func (t *SourceTracker) Beat() time.Time {
	now := t.now()
	t.mu.Lock()
	t.last = now
	t.mu.Unlock()
	return now
}

// Alive reports whether the last beat is within the timeout. A source that
// never checked in is down.
func (t *SourceTracker) Alive() bool {
	t.mu.RLock()
	last := t.last
	t.mu.RUnlock()
	if last.IsZero() {
		return false
	}
	return t.now().Sub(last) <= t.timeout
}

// LastBeat returns the time of the last beat, zero if none.
func (t *SourceTracker) LastBeat() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}
