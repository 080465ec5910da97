package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rxsavings/config"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the dashboard JSON API",
		Example: "  dashboard serve --config config.yml\n  RXSAVINGS_DATA_DIR=data dashboard serve --listen :8080",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.setup(func(cfg *config.Config) {
				if listen != "" {
					cfg.Listen = listen
				}
			})
			if err != nil {
				return err
			}
			if !a.cfg.Development {
				gin.SetMode(gin.ReleaseMode)
			}
			return serve(cmd.Context(), a.cfg, a.logger)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides the config file")
	return cmd
}

// serve loads the snapshot, then answers requests until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	eng, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	m := newMetrics()
	datasets := eng.Datasets()
	m.datasets.Set(float64(len(datasets)))
	m.records.Set(float64(eng.NumRecords()))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newRouter(eng, cfg.FeePerRx, logger.Named("http"), m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Listen), zap.Int("datasets", len(datasets)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
