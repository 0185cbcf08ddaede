package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/modoterra/redtail/pkg/providers/logs/filetail"
)

// Store is the append-only log file the stream endpoint follows.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates the file and its directory if needed.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	f.Close()
	return &Store{path: path}, nil
}

// Path returns the log file path.
func (s *Store) Path() string { return s.path }

// Append writes each line followed by a newline.
func (s *Store) Append(lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 0, 256*len(lines))
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\n')
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("append log file: %w", err)
	}
	return nil
}

// Last returns up to n trailing lines. A missing file has no lines.
func (s *Store) Last(n int) ([]string, error) {
	lines, err := filetail.ReadLast(s.path, n)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return lines, err
}
