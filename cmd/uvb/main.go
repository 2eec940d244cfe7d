package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/uvb/internal/client"
	"github.com/ajitpratap0/uvb/internal/config"
	"github.com/ajitpratap0/uvb/internal/lifecycle"
	"github.com/ajitpratap0/uvb/internal/registry"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "uvb",
		Short: "uvb: Ultimate Victory Battle counter server",
		Long:  "uvb keeps a registry of named counters. Register a name, then hit it as fast as you can; idle counters are reclaimed.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		mcpCmd(),
		registerCmd(),
		hitCmd(),
		leaderboardCmd(),
		healthCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newLifecycle(st *registry.Store, logger *slog.Logger) (*lifecycle.Manager, error) {
	return lifecycle.NewManager(st, cfg.Registry.SampleInterval, cfg.Registry.ReclaimInterval, logger)
}

func newClient(logger *slog.Logger) *client.Client {
	return client.New(cfg.Client.ServerURL, cfg.Client.Timeout, logger)
}
