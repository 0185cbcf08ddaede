package config

import (
	"fmt"
	"net/url"

	"github.com/modoterra/redtail/pkg/redact"
)

// Validate checks the config for structural correctness.
func Validate(c *Config) []error {
	var errs []error

	switch c.Mode {
	case ModeLive, ModePoll:
	default:
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q", ModeLive, ModePoll, c.Mode))
	}

	if u, err := url.Parse(c.Server); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("server must be an absolute http(s) URL, got %q", c.Server))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Errorf("server scheme must be http or https, got %q", u.Scheme))
	}
	if c.Mode == ModeLive && c.SSEURL == "" {
		errs = append(errs, fmt.Errorf("sse_url is required in live mode"))
	}

	if c.MaxLines < 1 {
		errs = append(errs, fmt.Errorf("max_lines must be positive, got %d", c.MaxLines))
	}

	durations := []struct {
		name string
		d    Duration
	}{
		{"heartbeat_timeout", c.HeartbeatTimeout},
		{"check_interval", c.CheckInterval},
		{"reconnected_hold", c.ReconnectedHold},
		{"copy_confirm", c.CopyConfirm},
		{"poll_interval", c.PollInterval},
	}
	for _, d := range durations {
		if d.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.d.Std()))
		}
	}
	if c.CheckInterval > 0 && c.HeartbeatTimeout > 0 && c.CheckInterval > c.HeartbeatTimeout {
		errs = append(errs, fmt.Errorf("check_interval (%s) must not exceed heartbeat_timeout (%s)",
			c.CheckInterval.Std(), c.HeartbeatTimeout.Std()))
	}

	for i, r := range c.Redact.Extra {
		if r.Pattern == "" {
			errs = append(errs, fmt.Errorf("redact.extra[%d]: pattern is required", i))
			continue
		}
		if _, err := redact.NewRule(r.Name, r.Pattern, r.Replacement); err != nil {
			errs = append(errs, fmt.Errorf("redact.extra[%d]: %w", i, err))
		}
	}

	return errs
}

// Redactor builds the redactor for c: the built-in rules followed by any
// extra rules. Call Validate first.
func (c *Config) Redactor() (*redact.Redactor, error) {
	extra := make([]redact.Rule, 0, len(c.Redact.Extra))
	for i, r := range c.Redact.Extra {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("extra-%d", i)
		}
		rule, err := redact.NewRule(name, r.Pattern, r.Replacement)
		if err != nil {
			return nil, fmt.Errorf("redact.extra[%d]: %w", i, err)
		}
		extra = append(extra, rule)
	}
	return redact.New(extra...), nil
}
