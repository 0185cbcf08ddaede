// Package journald streams a systemd unit's journal via journalctl.
package journald

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/modoterra/redtail/pkg/core"
)

// Stream is the LogLine stream tag for journal lines.
const Stream = "journal"

// Source follows one unit's journal.
type Source struct {
	unit    string
	command func(ctx context.Context) *exec.Cmd
	logger  *slog.Logger
}

// New creates a journal source for unit.
func New(unit string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		unit: unit,
		command: func(ctx context.Context) *exec.Cmd {
			return exec.CommandContext(ctx, "journalctl", "-f", "-u", unit, "-o", "cat", "-n", "0")
		},
		logger: logger,
	}
}

// NewWithCommand creates a source reading lines from an arbitrary command
// instead of journalctl.
func NewWithCommand(unit string, logger *slog.Logger, name string, args ...string) *Source {
	s := New(unit, logger)
	s.command = func(ctx context.Context) *exec.Cmd {
		return exec.CommandContext(ctx, name, args...)
	}
	return s
}

// Name implements core.LineSource.
func (s *Source) Name() string { return "journald" }

// Unit returns the followed unit.
func (s *Source) Unit() string { return s.unit }

// Subscribe starts the journal follower. The channel is closed when ctx is
// cancelled or the command exits.
func (s *Source) Subscribe(ctx context.Context) (<-chan core.LogLine, error) {
	cmd := s.command(ctx)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("journalctl pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("journalctl start: %w", err)
	}

	ch := make(chan core.LogLine, 100)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := core.LogLine{
				Source:   s.unit,
				TsUnixMs: time.Now().UnixMilli(),
				Stream:   Stream,
				Line:     scanner.Text(),
			}
			select {
			case ch <- line:
			case <-ctx.Done():
				_ = cmd.Wait()
				return
			}
		}
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			s.logger.Warn("journal follower exited", "unit", s.unit, "error", err)
		}
	}()

	s.logger.Info("subscribed to journal", "unit", s.unit)
	return ch, nil
}
