// Package service manages the redtaild systemd user service unit.
package service

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const unitName = "redtaild.service"

// UnitContents returns the systemd unit file contents for the given binary
// path and arguments.
func UnitContents(binaryPath string, args ...string) string {
	cmdline := binaryPath
	if len(args) > 0 {
		cmdline += " " + strings.Join(args, " ")
	}
	return fmt.Sprintf(`[Unit]
Description=redtail log feed server
Documentation=https://github.com/modoterra/redtail
After=network.target

[Service]
Type=notify
ExecStart=%s
Restart=on-failure
RestartSec=5
WatchdogSec=30

[Install]
WantedBy=default.target
`, cmdline)
}

// UnitPath returns the path to the systemd user unit file.
func UnitPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(configDir, "systemd", "user", unitName), nil
}

// Install writes the unit file, reloads systemd, and enables+starts the service.
func Install(args ...string) error {
	binaryPath, err := exec.LookPath("redtaild")
	if err != nil {
		return fmt.Errorf("redtaild not found in PATH: %w", err)
	}
	binaryPath, err = filepath.Abs(binaryPath)
	if err != nil {
		return fmt.Errorf("cannot resolve redtaild path: %w", err)
	}

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(unitPath), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}

	if err := os.WriteFile(unitPath, []byte(UnitContents(binaryPath, args...)), 0o644); err != nil {
		return fmt.Errorf("cannot write unit file: %w", err)
	}

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", "--now", unitName)
}

// Uninstall stops+disables the service, removes the unit file, and reloads systemd.
func Uninstall() error {
	// Best-effort stop and disable; ignore errors if not running.
	_ = systemctl("stop", unitName)
	_ = systemctl("disable", unitName)

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}

	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove unit file: %w", err)
	}

	return systemctl("daemon-reload")
}

// Status returns a human-readable status string.
func Status(healthURL string) string {
	var lines []string

	client := &http.Client{Timeout: 2 * time.Second}
	if resp, err := client.Get(healthURL); err != nil {
		lines = append(lines, "server: unreachable ("+healthURL+")")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			lines = append(lines, "server: healthy ("+healthURL+")")
		} else {
			lines = append(lines, fmt.Sprintf("server: unhealthy, %s (%s)", resp.Status, healthURL))
		}
	}

	unitPath, err := UnitPath()
	if err == nil {
		if _, statErr := os.Stat(unitPath); statErr == nil {
			out, runErr := exec.Command("systemctl", "--user", "is-active", unitName).Output()
			state := strings.TrimSpace(string(out))
			if runErr != nil && state == "" {
				state = "unknown"
			}
			lines = append(lines, "systemd user service: "+state)
		} else {
			lines = append(lines, "systemd user service: not installed")
		}
	}

	return strings.Join(lines, "\n")
}

func systemctl(args ...string) error {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl --user %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
