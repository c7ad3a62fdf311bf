package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jorge-rr00/newbackend/internal/cli"
	httpAdapter "github.com/jorge-rr00/newbackend/pkg/adapters/http"
	"github.com/jorge-rr00/newbackend/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Serves the REST API used by the web frontend, with per-session progress events over SSE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		svc, err := cli.OpenStorage(cfg, logger)
		if err != nil {
			return err
		}
		defer svc.Close()
		if err := svc.EnableMetrics(); err != nil {
			return err
		}

		streams := httpAdapter.NewStreamManager(logger)
		nova, err := svc.NewAssistant(streams.Hooks())
		if err != nil {
			return err
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithLogger(logger),
			httpAdapter.WithAllowedOrigin(cfg.Server.FrontendOrigin),
			httpAdapter.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
			httpAdapter.WithStreams(streams),
		}
		if cfg.Server.MetricsPath != "" {
			opts = append(opts, httpAdapter.WithMetrics(cfg.Server.MetricsPath, observability.Handler(svc.Registry)))
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           httpAdapter.NewHandler(nova, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Nova server listening", "address", srv.Addr, "store", cfg.Store.Backend, "retrieval", cfg.Retrieval.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			logger.Info("Start shutdown", "signal", ctx.Signal())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			logger.Info("Nova server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
