package daemon

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/modoterra/redtail/pkg/core"
	"github.com/modoterra/redtail/pkg/providers/logs/filetail"
	"github.com/modoterra/redtail/pkg/transport/sse"
)

type sourceState int

const (
	sourceUnknown sourceState = iota
	sourceUp
	sourceDown
)

// handleStream follows the log file from its current end. It announces the
// source state on connect and on every change, forwards appended lines, and
// pings immediately on connect and then whenever nothing else was sent for
// PingInterval.
func (d *Daemon) handleStream(c echo.Context) error {
	ctx := c.Request().Context()
	logger := d.logger.With("subscriber", uuid.NewString())

	tailer := filetail.New(d.store.Path(), logger, filetail.WithPollInterval(d.opts.PollInterval))
	lines, err := tailer.Subscribe(ctx)
	if err != nil {
		logger.Error("tail failed", "error", err)
		return fail(c, http.StatusInternalServerError, "log unavailable")
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	logger.Info("stream opened", "remote", c.RealIP())
	defer logger.Info("stream closed")

	w := sse.NewWriter(c.Response())
	if err := w.Retry(d.opts.Retry); err != nil {
		return nil
	}

	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	sent := sourceUnknown
	lastSent := time.Time{}
	for {
		if next := d.currentSource(); next != sent {
			name := core.WireSourceDown
			data := "0"
			if next == sourceUp {
				name, data = core.WireSourceUp, "1"
			}
			if err := w.Event(name, data); err != nil {
				return nil
			}
			logger.Debug("source state", "state", name)
			sent = next
		}

		// Checked on every pass, so the first ping follows the initial
		// source state without waiting for the ticker.
		if now := time.Now(); now.Sub(lastSent) >= d.opts.PingInterval {
			if err := w.Event(core.WirePing, strconv.FormatInt(now.Unix(), 10)); err != nil {
				return nil
			}
			lastSent = now
		}

		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := w.Data(line.Line); err != nil {
				return nil
			}
			lastSent = time.Now()
		case <-ticker.C:
		}
	}
}

func (d *Daemon) currentSource() sourceState {
	if d.source.Alive() {
		return sourceUp
	}
	return sourceDown
}
