package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modoterra/redtail/pkg/daemon"
)

func TestResolveAPIKey(t *testing.T) {
	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"default", "", "", daemon.DefaultAPIKey},
		{"env", "", "from-env", "from-env"},
		{"flag wins", "from-flag", "from-env", "from-flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envAPIKey, tt.env)
			apiKey = tt.flag
			defer func() { apiKey = "" }()
			if got := resolveAPIKey(); got != tt.want {
				t.Errorf("resolveAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "redtaild ") {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestLineSources(t *testing.T) {
	dir := t.TempDir()
	compose := filepath.Join(dir, "compose.yml")
	if err := os.WriteFile(compose, []byte("name: shop\nservices:\n  web:\n    image: nginx\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	journalUnit = "nginx.service"
	execCommands = []string{"tail -F /var/log/app.log"}
	containers = []string{"cache"}
	composeFile = compose
	composeSvcs = []string{"web"}
	defer func() {
		journalUnit, execCommands, containers, composeSvcs = "", nil, nil, nil
	}()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sources, err := lineSources(logger)
	if err != nil {
		t.Fatal(err)
	}
	var kinds []string
	for _, s := range sources {
		kinds = append(kinds, s.Name())
	}
	want := []string{"journald", "command", "command", "command"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("kinds = %v, want %v", kinds, want)
	}

	composeSvcs = []string{"missing"}
	if _, err := lineSources(logger); err == nil {
		t.Error("expected error for unknown compose service")
	}
}
