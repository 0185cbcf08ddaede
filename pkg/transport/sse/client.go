package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/modoterra/redtail/pkg/core"
)

// DefaultRetry is the reconnection delay used until the server sends one.
const DefaultRetry = 2 * time.Second

// ErrStreamClosed is reported when the server ends the response body.
var ErrStreamClosed = errors.New("sse: stream closed by server")

// Client subscribes to an SSE endpoint and reconnects after failures, the
// way a browser EventSource does. Every failure is reported as an
// EventTransportError before the next attempt.
type Client struct {
	url    string
	http   *http.Client
	retry  time.Duration
	lastID string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. It must not set a total request
// timeout, since the response body is read indefinitely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the initial reconnection delay.
func WithRetry(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retry = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		http:   &http.Client{},
		retry:  DefaultRetry,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Retry returns the current reconnection delay.
func (c *Client) Retry() time.Duration { return c.retry }

// Subscribe runs the client in a goroutine. The returned channel is closed
// when ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context) <-chan core.Event {
	ch := make(chan core.Event, 64)
	go func() {
		defer close(ch)
		_ = c.Run(ctx, ch)
	}()
	return ch
}

// Run connects, forwards events to out, and reconnects until ctx is
// cancelled. It always returns ctx.Err().
func (c *Client) Run(ctx context.Context, out chan<- core.Event) error {
	for {
		err := c.stream(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("sse stream failed", "url", c.url, "error", err, "retry", c.retry)
		if !c.send(ctx, out, core.Event{Kind: core.EventTransportError, At: c.now(), Err: err}) {
			return ctx.Err()
		}

		timer := time.NewTimer(c.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) stream(ctx context.Context, out chan<- core.Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.lastID != "" {
		req.Header.Set("Last-Event-ID", c.lastID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connect %s: unexpected status %s", c.url, resp.Status)
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != "text/event-stream" {
		return fmt.Errorf("connect %s: unexpected content type %q", c.url, resp.Header.Get("Content-Type"))
	}
	c.logger.Debug("sse stream open", "url", c.url)

	r := NewReader(resp.Body)
	for {
		msg, err := r.ReadEvent()
		c.absorb(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrStreamClosed
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if !c.send(ctx, out, core.EventFromWire(msg.Event, msg.Data, c.now())) {
			return ctx.Err()
		}
	}
}

func (c *Client) absorb(r *Reader) {
	if d := r.Retry(); d > 0 {
		c.retry = d
	}
	if id := r.LastID(); id != "" {
		c.lastID = id
	}
}

func (c *Client) send(ctx context.Context, out chan<- core.Event, ev core.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
