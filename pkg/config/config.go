// Package config loads the redtail viewer configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modoterra/redtail/pkg/buffer"
	"github.com/modoterra/redtail/pkg/liveness"
	"github.com/modoterra/redtail/pkg/session"
)

// Modes.
const (
	ModeLive = "live"
	ModePoll = "poll"
)

// Defaults not owned by another package.
const (
	DefaultServer       = "http://127.0.0.1:8080"
	DefaultSSEURL       = "/stream-logs"
	DefaultSnapshotURL  = "/logs"
	DefaultPollInterval = 2 * time.Second
)

// Environment overrides.
const (
	EnvServer = "REDTAIL_SERVER"
	EnvSSEURL = "REDTAIL_SSE_URL"
	EnvMode   = "REDTAIL_MODE"
)

// Config represents a redtail config file (YAML or TOML).
type Config struct {
	Server      string `yaml:"server"       toml:"server"`
	SSEURL      string `yaml:"sse_url"      toml:"sse_url"`
	SnapshotURL string `yaml:"snapshot_url" toml:"snapshot_url"`
	Mode        string `yaml:"mode"         toml:"mode"`
	SeedFile    string `yaml:"seed_file,omitempty" toml:"seed_file,omitempty"`

	MaxLines         int      `yaml:"max_lines"         toml:"max_lines"`
	HeartbeatTimeout Duration `yaml:"heartbeat_timeout" toml:"heartbeat_timeout"`
	CheckInterval    Duration `yaml:"check_interval"    toml:"check_interval"`
	ReconnectedHold  Duration `yaml:"reconnected_hold"  toml:"reconnected_hold"`
	CopyConfirm      Duration `yaml:"copy_confirm"      toml:"copy_confirm"`
	PollInterval     Duration `yaml:"poll_interval"     toml:"poll_interval"`

	UI     UI     `yaml:"ui"     toml:"ui"`
	Redact Redact `yaml:"redact" toml:"redact"`
}

// UI selects which optional controls are enabled.
type UI struct {
	Search     bool `yaml:"search"     toml:"search"`
	Autoscroll bool `yaml:"autoscroll" toml:"autoscroll"`
	Copy       bool `yaml:"copy"       toml:"copy"`
}

// Redact holds additional redaction rules, applied after the built-in set.
type Redact struct {
	Extra []RedactRule `yaml:"extra,omitempty" toml:"extra,omitempty"`
}

// RedactRule is a user-supplied pattern and replacement.
type RedactRule struct {
	Name        string `yaml:"name"        toml:"name"`
	Pattern     string `yaml:"pattern"     toml:"pattern"`
	Replacement string `yaml:"replacement" toml:"replacement"`
}

// Duration is a time.Duration written as a Go duration string ("1.5s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:           DefaultServer,
		SSEURL:           DefaultSSEURL,
		SnapshotURL:      DefaultSnapshotURL,
		Mode:             ModeLive,
		MaxLines:         buffer.DefaultMaxLines,
		HeartbeatTimeout: Duration(liveness.DefaultHeartbeatTimeout),
		CheckInterval:    Duration(liveness.DefaultCheckInterval),
		ReconnectedHold:  Duration(liveness.DefaultReconnectedHold),
		CopyConfirm:      Duration(session.DefaultCopyConfirm),
		PollInterval:     Duration(DefaultPollInterval),
		UI:               UI{Search: true, Autoscroll: true, Copy: true},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "redtail.yaml"
	}
	return filepath.Join(dir, "redtail", "config.yaml")
}

// ApplyEnv overrides fields from environment variables read via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvServer); v != "" {
		c.Server = v
	}
	if v := getenv(EnvSSEURL); v != "" {
		c.SSEURL = v
	}
	if v := getenv(EnvMode); v != "" {
		c.Mode = v
	}
}

// StreamURL resolves the feed endpoint against Server.
func (c *Config) StreamURL() (string, error) {
	return c.resolve(c.SSEURL)
}

// SnapshotEndpoint resolves the snapshot endpoint against Server. It
// returns "" when snapshots are disabled.
func (c *Config) SnapshotEndpoint() (string, error) {
	if c.SnapshotURL == "" {
		return "", nil
	}
	return c.resolve(c.SnapshotURL)
}

// HealthURL returns the server's health endpoint.
func (c *Config) HealthURL() (string, error) {
	return c.resolve("/health")
}

func (c *Config) resolve(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", ref, err)
	}
	if r.IsAbs() {
		return r.String(), nil
	}
	base, err := url.Parse(c.Server)
	if err != nil {
		return "", fmt.Errorf("parse server %q: %w", c.Server, err)
	}
	return base.ResolveReference(r).String(), nil
}

// SessionConfig maps the file settings onto a session configuration.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		MaxLines: c.MaxLines,
		Poll:     c.Mode == ModePoll,
		Liveness: liveness.Config{
			HeartbeatTimeout: c.HeartbeatTimeout.Std(),
			ReconnectedHold:  c.ReconnectedHold.Std(),
		},
		CopyConfirm: c.CopyConfirm.Std(),
		Autoscroll:  c.UI.Autoscroll,
	}
}
