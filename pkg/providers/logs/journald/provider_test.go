package journald

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubscribeReadsCommandOutput(t *testing.T) {
	src := NewWithCommand("nginx.service", testLogger(), "printf", "one\ntwo\n")
	if src.Name() != "journald" || src.Unit() != "nginx.service" {
		t.Fatalf("identity: %s %s", src.Name(), src.Unit())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := src.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var got []string
	for l := range ch {
		if l.Stream != Stream || l.Source != "nginx.service" {
			t.Errorf("line tags: %+v", l)
		}
		got = append(got, l.Line)
	}
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("got %v", got)
	}
}

func TestSubscribeMissingCommand(t *testing.T) {
	src := NewWithCommand("x", testLogger(), "/nonexistent/journalctl")
	if _, err := src.Subscribe(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
}

func TestCancelStopsFollower(t *testing.T) {
	src := NewWithCommand("x", testLogger(), "sleep", "30")
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := src.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("unexpected line")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
