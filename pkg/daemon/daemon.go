// Package daemon implements redtaild, the HTTP feed server the viewer
// streams from.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Defaults for Options.
const (
	DefaultAPIKey        = "change-me"
	DefaultRetry         = 2 * time.Second
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultPingInterval  = time.Second
	DefaultSnapshotLines = 500
	DefaultIngestRate    = 50
	DefaultIngestBurst   = 100
	DefaultMaxBody       = "2M"
)

// HeaderAPIKey carries the ingest credential.
const HeaderAPIKey = "X-API-Key"

// Options configures a Daemon.
type Options struct {
	LogFile       string
	APIKey        string
	SourceTimeout time.Duration
	Retry         time.Duration
	PollInterval  time.Duration
	PingInterval  time.Duration
	SnapshotLines int
	IngestRate    float64
	IngestBurst   int
}

func (o Options) withDefaults() Options {
	if o.APIKey == "" {
		o.APIKey = DefaultAPIKey
	}
	if o.Retry <= 0 {
		o.Retry = DefaultRetry
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.SnapshotLines <= 0 {
		o.SnapshotLines = DefaultSnapshotLines
	}
	if o.IngestRate <= 0 {
		o.IngestRate = DefaultIngestRate
	}
	if o.IngestBurst <= 0 {
		o.IngestBurst = DefaultIngestBurst
	}
	return o
}

// Daemon is the redtaild HTTP server.
type Daemon struct {
	opts    Options
	echo    *echo.Echo
	store   *Store
	source  *SourceTracker
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a daemon writing to opts.LogFile.
func New(opts Options, logger *slog.Logger) (*Daemon, error) {
	opts = opts.withDefaults()
	if opts.LogFile == "" {
		return nil, errors.New("log file is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	store, err := NewStore(opts.LogFile)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		opts:    opts,
		echo:    echo.New(),
		store:   store,
		source:  NewSourceTracker(opts.SourceTimeout),
		limiter: rate.NewLimiter(rate.Limit(opts.IngestRate), opts.IngestBurst),
		logger:  logger,
	}
	d.echo.HideBanner = true
	d.echo.HidePort = true
	d.registerMiddleware()
	d.registerHandlers()
	return d, nil
}

// Store returns the log store.
func (d *Daemon) Store() *Store { return d.store }

// Source returns the source liveness tracker.
func (d *Daemon) Source() *SourceTracker { return d.source }

// ServeHTTP makes the daemon usable with httptest.
func (d *Daemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.echo.ServeHTTP(w, r)
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("listening", "addr", addr, "log_file", d.store.Path())
		errCh <- d.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (d *Daemon) registerMiddleware() {
	d.echo.Use(middleware.Recover())
	d.echo.Use(middleware.BodyLimit(DefaultMaxBody))
	d.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/heartbeat"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				d.logger.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			d.logger.Debug("request", attrs...)
			return nil
		},
	}))
}

func (d *Daemon) registerHandlers() {
	d.echo.GET("/stream-logs", d.handleStream)
	d.echo.POST("/ingest", d.handleIngest, d.requireAPIKey)
	d.echo.GET("/heartbeat", d.handleHeartbeat, d.requireAPIKey)
	d.echo.GET("/health", d.handleHealth)
	d.echo.GET("/logs", d.handleLogs)
}
