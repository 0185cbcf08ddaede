package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/modoterra/redtail/internal/buildinfo"
	"github.com/modoterra/redtail/pkg/daemon"
	"github.com/modoterra/redtail/pkg/core"
	"github.com/modoterra/redtail/pkg/daemon/service"
	"github.com/modoterra/redtail/pkg/providers/logs/command"
	"github.com/modoterra/redtail/pkg/providers/logs/docker"
	"github.com/modoterra/redtail/pkg/providers/logs/journald"
)

const envAPIKey = "REDTAIL_API_KEY"

var (
	addr          string
	logFile       string
	apiKey        string
	journalUnit   string
	execCommands  []string
	containers    []string
	composeFile   string
	composeSvcs   []string
	sourceTimeout time.Duration
	verbose       bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "redtaild",
	Short:        "Log feed server for redtail",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	rootCmd.Flags().StringVar(&logFile, "log-file", defaultLogFile(), "file the feed is stored in and streamed from")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "ingest key (default $"+envAPIKey+" or "+daemon.DefaultAPIKey+")")
	rootCmd.Flags().StringVar(&journalUnit, "journal-unit", "", "also ingest this systemd unit's journal")
	rootCmd.Flags().StringArrayVar(&execCommands, "exec", nil, "also ingest the output of this shell command (repeatable)")
	rootCmd.Flags().StringArrayVar(&containers, "docker-container", nil, "also ingest this container's logs (repeatable)")
	rootCmd.Flags().StringVar(&composeFile, "compose-file", "compose.yml", "compose file used to resolve --compose-service")
	rootCmd.Flags().StringArrayVar(&composeSvcs, "compose-service", nil, "also ingest this compose service's logs (repeatable)")
	rootCmd.Flags().DurationVar(&sourceTimeout, "source-timeout", daemon.DefaultSourceTimeout, "source is down after this long without ingest or heartbeat")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(versionCmd)
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join("logs", "app.log")
	}
	return filepath.Join(dir, "redtail", "app.log")
}

func resolveAPIKey() string {
	if apiKey != "" {
		return apiKey
	}
	if v := os.Getenv(envAPIKey); v != "" {
		return v
	}
	return daemon.DefaultAPIKey
}

func run(_ *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	key := resolveAPIKey()
	if key == daemon.DefaultAPIKey {
		logger.Warn("using the default API key; set --api-key or " + envAPIKey)
	}

	d, err := daemon.New(daemon.Options{
		LogFile:       logFile,
		APIKey:        key,
		SourceTimeout: sourceTimeout,
	}, logger)
	if err != nil {
		return err
	}

	sources, err := lineSources(logger)
	if err != nil {
		return err
	}
	for _, src := range sources {
		pump := daemon.NewPump(d, src, daemon.DefaultPollInterval, logger)
		go pump.Run(ctx)
	}

	service.NotifyReady(logger)
	go service.RunWatchdog(ctx, func() bool { return ctx.Err() == nil }, logger)

	err = d.Run(ctx, addr)
	service.NotifyStopping(logger)
	logger.Info("shutting down")
	return err
}

// lineSources builds the local sources named on the command line.
func lineSources(logger *slog.Logger) ([]core.LineSource, error) {
	var sources []core.LineSource
	if journalUnit != "" {
		sources = append(sources, journald.New(journalUnit, logger))
	}
	for i, c := range execCommands {
		sources = append(sources, command.Shell(fmt.Sprintf("exec-%d", i+1), c, logger))
	}
	for _, c := range containers {
		sources = append(sources, docker.New(c, logger))
	}
	if len(composeSvcs) > 0 {
		cf, err := docker.ParseComposeFile(composeFile)
		if err != nil {
			return nil, err
		}
		for _, svc := range composeSvcs {
			name, err := cf.Container(composeFile, svc)
			if err != nil {
				return nil, err
			}
			sources = append(sources, docker.New(name, logger))
		}
	}
	for _, src := range sources {
		logger.Info("ingesting local source", "kind", src.Name())
	}
	return sources, nil
}

var installCmd = &cobra.Command{
	Use:   "install [-- daemon flags]",
	Short: "Install and start redtaild as a systemd user service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := service.Install(args...); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "redtaild service installed and started")
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and remove the redtaild systemd user service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := service.Uninstall(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "redtaild service removed")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String("redtaild"))
	},
}
