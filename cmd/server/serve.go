package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	api "portfolio-backend/internal/delivery/http"
	"portfolio-backend/internal/delivery/websocket"
	"portfolio-backend/internal/usecase"
)

const liveResendInterval = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler, err := usecase.NewRefreshScheduler(ctx, a.portfolios, cfg.Enrichment.RefreshCron, logger.Component("scheduler"))
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	live := websocket.NewHandler(a.portfolios, liveResendInterval, logger.Component("ws"))
	router := api.NewRouter(api.Routes{
		Auth:        api.NewAuthenticator(a.identity),
		Portfolio:   api.NewPortfolioHandler(a.store, a.portfolios, a.indicators, logger.Component("api")),
		Tokens:      api.NewTokenHandler(a.tokens),
		Test:        api.NewTestHandler(a.push, a.tokens),
		Live:        live.Handle,
		Failures:    a.failures.Counts,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	return nil
}
