package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SergeyParamoshkin/issueblog/internal/config"
	"github.com/SergeyParamoshkin/issueblog/internal/server"
	"github.com/SergeyParamoshkin/issueblog/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

var (
	flagAddr     string
	flagDiagAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API and the diagnostics listener",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagAddr != "" {
			cfg.Addr = flagAddr
		}
		if flagDiagAddr != "" {
			cfg.DiagAddr = flagDiagAddr
		}

		logger, flush, err := newLogger(cfg.Debug)
		if err != nil {
			return err
		}
		defer flush()

		exporter, err := telemetry.Setup()
		if err != nil {
			return fmt.Errorf("initializing prometheus exporter: %w", err)
		}
		metrics := telemetry.Default(config.ServiceName)

		a, err := newApp(cfg, logger, metrics)
		if err != nil {
			return err
		}
		defer a.Close()

		router := server.NewRouter(server.Deps{
			Store:      a.blog,
			Cache:      a.blog,
			Repo:       cfg.GitHub.Repo,
			AdminToken: cfg.AdminToken,
			Logger:     logger,
			Metrics:    metrics,
		})
		if cfg.AdminToken == "" {
			logger.Warnw("admin token not set, admin routes are disabled")
		}

		servers := []*http.Server{
			{Addr: cfg.Addr, Handler: router, ReadHeaderTimeout: 10 * time.Second},
			{Addr: cfg.DiagAddr, Handler: server.NewDiagRouter(exporter), ReadHeaderTimeout: 10 * time.Second},
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		for _, srv := range servers {
			srv := srv
			g.Go(func() error {
				logger.Infow("listening", "addr", srv.Addr, "repo", cfg.GitHub.Owner+"/"+cfg.GitHub.Repo)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serving %s: %w", srv.Addr, err)
				}

				return nil
			})
		}
		g.Go(func() error {
			<-ctx.Done()
			logger.Infow("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			for _, srv := range servers {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Errorw("shutdown failed", "addr", srv.Addr, "error", err)
				}
			}

			return nil
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "application address, overriding addr")
	serveCmd.Flags().StringVar(&flagDiagAddr, "diag-addr", "", "diagnostics address, overriding diag_addr")
}
