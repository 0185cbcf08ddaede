package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/modoterra/redtail/pkg/core"
)

// Pump copies lines from a local source (such as a journal) into the store
// in batches, beating the source tracker on every flush. The source is
// resubscribed with backoff when it ends.
type Pump struct {
	daemon   *Daemon
	source   core.LineSource
	interval time.Duration
	logger   *slog.Logger
}

// NewPump creates a pump flushing every interval.
func NewPump(d *Daemon, src core.LineSource, interval time.Duration, logger *slog.Logger) *Pump {
	if interval <= 0 {
		interval = d.opts.PollInterval
	}
	return &Pump{daemon: d, source: src, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (p *Pump) Run(ctx context.Context) {
	failures := 0
	for {
		started := time.Now()
		lines, err := p.source.Subscribe(ctx)
		if err != nil {
			p.logger.Error("source subscribe failed", "source", p.source.Name(), "err", err)
		} else {
			p.drain(ctx, lines)
		}
		if ctx.Err() != nil {
			return
		}

		// A source that ran for a while gets a fresh backoff.
		if time.Since(started) > time.Minute {
			failures = 0
		}
		failures++
		wait := backoff(failures)
		p.logger.Warn("source ended, restarting", "source", p.source.Name(), "in", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (p *Pump) drain(ctx context.Context, lines <-chan core.LogLine) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var batch []string
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.daemon.store.Append(batch); err != nil {
			p.logger.Error("store append failed", "source", p.source.Name(), "err", err)
		}
		p.daemon.source.Beat()
		batch = batch[:0]
	}
	defer flush()

	for {
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			batch = append(batch, l.Line)
		case <-ticker.C:
			flush()
		}
	}
}

// backoff returns the restart delay after the given number of consecutive
// failures: 1s doubling up to 30s.
func backoff(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	if failures > 6 {
		return 30 * time.Second
	}
	d := time.Duration(1<<uint(failures-1)) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
