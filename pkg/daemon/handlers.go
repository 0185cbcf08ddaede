package daemon

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// IngestResponse is returned by POST /ingest.
type IngestResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

// HeartbeatResponse is returned by GET /heartbeat.
type HeartbeatResponse struct {
	OK bool    `json:"ok"`
	TS float64 `json:"ts"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	OK          bool `json:"ok"`
	SourceAlive bool `json:"source_alive"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, ErrorResponse{OK: false, Error: msg})
}

func (d *Daemon) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(key), []byte(d.opts.APIKey)) != 1 {
			return fail(c, http.StatusForbidden, "forbidden")
		}
		return next(c)
	}
}

func (d *Daemon) handleIngest(c echo.Context) error {
	if !d.limiter.Allow() {
		return fail(c, http.StatusTooManyRequests, "rate limited")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "unreadable body")
	}

	var lines []string
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMETextPlain) {
		scanLines(bytes.NewReader(body), func(l string) {
			lines = append(lines, l)
		})
	} else {
		var ok bool
		lines, ok = decodeIngest(body)
		if !ok {
			return fail(c, http.StatusBadRequest, "invalid payload")
		}
	}

	if err := d.store.Append(lines); err != nil {
		d.logger.Error("append failed", "error", err)
		return fail(c, http.StatusInternalServerError, "write failed")
	}
	d.source.Beat()

	return c.JSON(http.StatusOK, IngestResponse{OK: true, Count: len(lines)})
}

// decodeIngest extracts the "lines" array from a JSON body. A body that is
// not a JSON object counts as empty; a "lines" value that is not an array
// is invalid. Non-string entries are stored as their JSON encoding.
func decodeIngest(body []byte) ([]string, bool) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, true
	}
	raw, ok := payload["lines"]
	if !ok {
		return nil, true
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err == nil {
			lines = append(lines, s)
			continue
		}
		lines = append(lines, string(it))
	}
	return lines, true
}

func (d *Daemon) handleHeartbeat(c echo.Context) error {
	at := d.source.Beat()
	return c.JSON(http.StatusOK, HeartbeatResponse{
		OK: true,
		TS: float64(at.UnixNano()) / 1e9,
	})
}

func (d *Daemon) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true, SourceAlive: d.source.Alive()})
}

func (d *Daemon) handleLogs(c echo.Context) error {
	lines, err := d.store.Last(d.opts.SnapshotLines)
	if err != nil {
		d.logger.Error("snapshot failed", "error", err)
		return fail(c, http.StatusInternalServerError, "read failed")
	}
	text := strings.Join(lines, "\n")
	return c.String(http.StatusOK, text)
}
