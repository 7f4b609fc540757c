package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd(load runtimeLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the content and debug HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shutdownCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := load(shutdownCtx)
			if err != nil {
				return err
			}
			defer closeRuntime(rt)
			logger := rt.Logger

			if rt.Config.WatchContent {
				go func() {
					if err := rt.Static.Watch(shutdownCtx, logger.Named("watch")); err != nil {
						logger.Error("content watcher stopped", zap.Error(err))
					}
				}()
			}

			srv := &http.Server{
				Addr:         ":" + rt.Config.Port,
				Handler:      rt.Handler(),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 5 * time.Minute,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("cockpit listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-shutdownCtx.Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown failed", zap.Error(err))
			}
			return nil
		},
	}
}
