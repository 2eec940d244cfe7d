package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/uvb/internal/api"
	"github.com/ajitpratap0/uvb/internal/registry"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the counter server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			st := registry.NewStore()
			lm, err := newLifecycle(st, logger)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv := api.NewServer(st, logger)
			httpSrv := &http.Server{
				Addr:              cfg.Server.ListenAddr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
				ReadTimeout:       cfg.Server.ReadTimeout,
				WriteTimeout:      cfg.Server.WriteTimeout,
				IdleTimeout:       cfg.Server.IdleTimeout,
			}

			g, ctx := errgroup.WithContext(cmd.Context())

			g.Go(func() error {
				return lm.Run(ctx)
			})

			g.Go(func() error {
				logger.Info("HTTP server starting", "addr", cfg.Server.ListenAddr)
				if listenErr := httpSrv.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
					return fmt.Errorf("serve: HTTP server: %w", listenErr)
				}
				return nil
			})

			g.Go(func() error {
				<-ctx.Done()
				logger.Info("shutting down")
				if shutdownErr := api.Shutdown(httpSrv, cfg.Server.ShutdownTimeout); shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
					return fmt.Errorf("serve: graceful shutdown: %w", shutdownErr)
				}
				return nil
			})

			return g.Wait()
		},
	}
	return cmd
}
