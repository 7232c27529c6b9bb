package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborpoint/lendops/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		// Migrations are idempotent; running them on boot keeps a fresh
		// sqlite file usable without a separate migrate step.
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}

		srv := server.New(st, eng, server.Options{
			ReviewsEnabled:   cfg.Reviews.Enabled,
			ExecutionEnabled: cfg.Reviews.ExecutionEnabled,
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			RatePerSecond:    cfg.Server.RatePerSecond,
			RateBurst:        cfg.Server.RateBurst,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Bool("reviews_enabled", cfg.Reviews.Enabled),
			zap.Bool("execution_enabled", cfg.Reviews.ExecutionEnabled),
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
