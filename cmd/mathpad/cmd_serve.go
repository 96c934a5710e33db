package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/njchilds90/gomathpad/internal/config"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the expression tools and the solver proxy over HTTP",
		Long: `Starts the HTTP server:

  POST /tool            execute a tool call
  GET  /schema          tool schema for agent registration
  GET  /health          health check
  POST /solve/{method}  forward to the method's service

The config file is watched; endpoint changes apply without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Server.Addr
			}
			return runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func runServe(parent context.Context, addr string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newClient()
	srv := &http.Server{
		Addr:              addr,
		Handler:           newServer(client, logger, cfg.Server.MaxBodyBytes),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.GetReadTimeout(),
		WriteTimeout:      cfg.GetWriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("mathpad server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		err := config.Watch(gctx, configPath, logger, func(c *config.Config) {
			client.SetEndpoints(c.Endpoints())
			logger.Info("solver endpoints updated", zap.Int("methods", len(c.Endpoints())))
		})
		if err != nil {
			logger.Warn("config watch disabled", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
