package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/automaton-store/internal/application"
	appscans "github.com/bryanwahyu/automaton-store/internal/application/scans"
	"github.com/bryanwahyu/automaton-store/internal/infra/httpserver"
	"github.com/bryanwahyu/automaton-store/internal/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `Serve the scan store over HTTP. Every /v1 route requires the local API key,
see "automaton apikey show".`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, store, err := setup()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// schema dibuat di awal supaya error config kelihatan sebelum listen
	if err := store.Ping(ctx); err != nil {
		return err
	}
	if _, err := store.APIKeys().GetOrCreate(ctx); err != nil {
		return err
	}

	var limiter *middleware.RateLimiter
	if rl := cfg.Server.RateLimit; rl.Capacity > 0 {
		limiter = middleware.NewRateLimiter(ctx, rl.Capacity, rl.RefillPerSecond)
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Scans:          appscans.NewService(store, application.SystemClock{}, log),
		Store:          store,
		Metrics:        middleware.NewMetrics(),
		Limiter:        limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// graceful shutdown
	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown error")
	}
	return nil
}
