package view

import (
	"testing"

	"github.com/modoterra/redtail/pkg/core"
)

func lines(texts ...string) []core.LogLine {
	out := make([]core.LogLine, len(texts))
	for i, t := range texts {
		out[i] = core.LogLine{Line: t}
	}
	return out
}

func TestRender(t *testing.T) {
	buf := lines("a", "ERROR: bad", "ok")
	tests := []struct {
		query string
		want  string
	}{
		{"", "a\nERROR: bad\nok"},
		{"error", "ERROR: bad"},
		{"ERROR", "ERROR: bad"},
		{"o", "ERROR: bad\nok"},
		{"missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := Render(buf, tt.query); got != tt.want {
				t.Errorf("Render(%q): got %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestFilterKeepsOrderAndDuplicates(t *testing.T) {
	buf := lines("error 1", "info", "Error 2", "error 1")
	got := Filter(buf, "error")
	want := []string{"error 1", "Error 2", "error 1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRenderEmptyBuffer(t *testing.T) {
	if got := Render(nil, ""); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestClip(t *testing.T) {
	got := Clip("short\nthis line is too long", 10)
	want := "short\nthis li..."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := Clip("unchanged", 0); got != "unchanged" {
		t.Errorf("width 0: got %q", got)
	}
}
