package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/modoterra/redtail/internal/buildinfo"
	"github.com/modoterra/redtail/pkg/config"
	"github.com/modoterra/redtail/pkg/daemon"
	"github.com/modoterra/redtail/pkg/daemon/service"
	"github.com/modoterra/redtail/pkg/providers/logs/filetail"
	"github.com/modoterra/redtail/pkg/session"
	"github.com/modoterra/redtail/pkg/transport/sse"
	tuimodel "github.com/modoterra/redtail/pkg/tui/model"
)

var (
	configPath string
	serverFlag string
	modeFlag   string
	logFile    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "redtail",
	Short: "Live log viewer with on-screen redaction",
	Long: "redtail streams a log feed from redtaild, masks addresses, credentials and tokens " +
		"before display, and tracks whether the feed is alive.",
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "feed server base URL")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "live or poll")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write debug logs to this file")

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(redactCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves file, environment and flags, in that order.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if serverFlag != "" {
		cfg.Server = serverFlag
	}
	if modeFlag != "" {
		cfg.Mode = modeFlag
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func newLogger() (*slog.Logger, func(), error) {
	if logFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { f.Close() }, nil
}

// --- Root: TUI ---

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	redactor, err := cfg.Redactor()
	if err != nil {
		return err
	}
	sessCfg := cfg.SessionConfig()
	sessCfg.Redactor = redactor
	sess := session.New(sessCfg, time.Now())

	snapshot, err := snapshotSource(cfg)
	if err != nil {
		return err
	}
	if snapshot != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		lines, err := snapshot(ctx)
		cancel()
		if err != nil {
			logger.Warn("seed failed", "err", err)
		} else {
			sess.Seed(lines)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := tuimodel.Options{
		Config:    cfg,
		Session:   sess,
		Snapshot:  snapshot,
		Clipboard: systemClipboard{},
	}
	if cfg.Mode == config.ModeLive {
		streamURL, err := cfg.StreamURL()
		if err != nil {
			return err
		}
		client := sse.NewClient(streamURL, sse.WithLogger(logger))
		sess.StartFeed(time.Now())
		opts.Feed = client.Subscribe(ctx)
		logger.Info("streaming", "url", streamURL)
	}

	p := tea.NewProgram(tuimodel.New(opts), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// snapshotSource returns the seed/poll reader: the local seed file when
// configured, otherwise the server snapshot endpoint.
func snapshotSource(cfg *config.Config) (tuimodel.SnapshotFunc, error) {
	if cfg.SeedFile != "" {
		path, max := cfg.SeedFile, cfg.MaxLines
		return func(context.Context) ([]string, error) {
			return filetail.ReadLast(path, max)
		}, nil
	}
	url, err := cfg.SnapshotEndpoint()
	if err != nil || url == "" {
		return nil, err
	}
	client := &http.Client{}
	return func(ctx context.Context) ([]string, error) {
		return fetchSnapshot(ctx, client, url)
	}, nil
}

// --- Ping ---

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if the feed server is running",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		url, err := cfg.HealthURL()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("cannot reach %s: %w", url, err)
		}
		defer resp.Body.Close()

		var health daemon.HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			return fmt.Errorf("bad health response: %w", err)
		}
		if !health.OK {
			return fmt.Errorf("server unhealthy: %s", resp.Status)
		}
		source := "down"
		if health.SourceAlive {
			source = "up"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pong ✓ (source %s)\n", source)
		return nil
	},
}

// --- Status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show feed server and service status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		url, err := cfg.HealthURL()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), service.Status(url))
		return nil
	},
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String("redtail"))
	},
}
