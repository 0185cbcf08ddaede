package core

import "context"

// LineSource is implemented by anything that can stream log lines.
type LineSource interface {
	// Name returns the source identifier (e.g., "filetail", "journald").
	Name() string

	// Subscribe starts streaming lines. The channel is closed when ctx is
	// cancelled or the source ends.
	Subscribe(ctx context.Context) (<-chan LogLine, error)
}
