// Package command streams the output of a long-running shell command.
package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/modoterra/redtail/pkg/core"
)

// Stream tags.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// Source runs one command per subscription and emits its stdout and
// stderr lines.
type Source struct {
	name   string
	argv   []string
	dir    string
	env    []string
	logger *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithDir sets the working directory.
func WithDir(dir string) Option {
	return func(s *Source) { s.dir = dir }
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) Option {
	return func(s *Source) { s.env = append(s.env, env...) }
}

// New creates a source that runs argv directly. name tags emitted lines.
func New(name string, argv []string, logger *slog.Logger, opts ...Option) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Source{name: name, argv: argv, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Shell creates a source that runs command through sh -c.
func Shell(name, command string, logger *slog.Logger, opts ...Option) *Source {
	return New(name, []string{"sh", "-c", command}, logger, opts...)
}

// Name implements core.LineSource.
func (s *Source) Name() string { return "command" }

// Label returns the tag placed on emitted lines.
func (s *Source) Label() string { return s.name }

// Subscribe starts the command. The channel is closed once both output
// streams hit EOF or ctx is cancelled.
func (s *Source) Subscribe(ctx context.Context) (<-chan core.LogLine, error) {
	if len(s.argv) == 0 {
		return nil, fmt.Errorf("%s: empty command", s.name)
	}
	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	cmd.Dir = s.dir
	if len(s.env) > 0 {
		cmd.Env = append(cmd.Environ(), s.env...)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s: stdout pipe: %w", s.name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%s: stderr pipe: %w", s.name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: start: %w", s.name, err)
	}

	ch := make(chan core.LogLine, 100)
	var wg sync.WaitGroup
	wg.Add(2)
	go s.scan(ctx, &wg, stdout, StreamStdout, ch)
	go s.scan(ctx, &wg, stderr, StreamStderr, ch)

	go func() {
		wg.Wait()
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			s.logger.Warn("command exited", "source", s.name, "error", err)
		}
		close(ch)
	}()

	s.logger.Info("command started", "source", s.name, "pid", cmd.Process.Pid)
	return ch, nil
}

func (s *Source) scan(ctx context.Context, wg *sync.WaitGroup, r io.Reader, stream string, ch chan<- core.LogLine) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := core.LogLine{
			Source:   s.name,
			TsUnixMs: time.Now().UnixMilli(),
			Stream:   stream,
			Line:     scanner.Text(),
		}
		select {
		case ch <- line:
		case <-ctx.Done():
			// Keep draining so the child never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, r)
			return
		}
	}
}
