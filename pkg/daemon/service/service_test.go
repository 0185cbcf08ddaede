package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUnitContents(t *testing.T) {
	got := UnitContents("/usr/local/bin/redtaild", "--addr", ":8080")

	if !strings.Contains(got, "ExecStart=/usr/local/bin/redtaild --addr :8080") {
		t.Error("unit file missing ExecStart with binary path and args")
	}
	if !strings.Contains(got, "Type=notify") {
		t.Error("unit file missing Type=notify")
	}
	if !strings.Contains(got, "WatchdogSec=") {
		t.Error("unit file missing WatchdogSec")
	}
	if !strings.Contains(got, "Restart=on-failure") {
		t.Error("unit file missing Restart=on-failure")
	}
	if !strings.Contains(got, "[Install]") {
		t.Error("unit file missing [Install] section")
	}
}

func TestUnitPath(t *testing.T) {
	path, err := UnitPath()
	if err != nil {
		t.Fatalf("UnitPath() error: %v", err)
	}
	if !strings.HasSuffix(path, "systemd/user/redtaild.service") {
		t.Errorf("UnitPath() = %q, want suffix systemd/user/redtaild.service", path)
	}
}

func TestStatusUnreachable(t *testing.T) {
	got := Status("http://127.0.0.1:1/health")
	if !strings.Contains(got, "server: unreachable") {
		t.Errorf("Status() should report unreachable server, got: %s", got)
	}
}

func TestStatusHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	got := Status(srv.URL + "/health")
	if !strings.Contains(got, "server: healthy") {
		t.Errorf("Status() should report healthy server, got: %s", got)
	}
}

func TestStatusUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	got := Status(srv.URL)
	if !strings.Contains(got, "server: unhealthy") {
		t.Errorf("Status() should report unhealthy server, got: %s", got)
	}
}

func TestNotifyOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	NotifyReady(logger)
	NotifyStopping(logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		RunWatchdog(ctx, nil, logger)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("watchdog should return immediately without WATCHDOG_USEC")
	}
}
