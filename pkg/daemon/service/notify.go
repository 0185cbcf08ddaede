package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady tells systemd that startup finished. It is a no-op outside
// systemd.
func NotifyReady(logger *slog.Logger) {
	notify(logger, daemon.SdNotifyReady)
}

// NotifyStopping tells systemd that shutdown began.
func NotifyStopping(logger *slog.Logger) {
	notify(logger, daemon.SdNotifyStopping)
}

// RunWatchdog pings the systemd watchdog at half its interval until ctx is
// cancelled. It returns immediately when no watchdog is configured. healthy
// gates each ping.
func RunWatchdog(ctx context.Context, healthy func() bool, logger *slog.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if healthy != nil && !healthy() {
				logger.Warn("health check failed, skipping watchdog ping")
				continue
			}
			notify(logger, daemon.SdNotifyWatchdog)
		}
	}
}

func notify(logger *slog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("sd_notify failed", "state", state, "err", err)
		return
	}
	if sent {
		logger.Debug("sd_notify", "state", state)
	}
}
