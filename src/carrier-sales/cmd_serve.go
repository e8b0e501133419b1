package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/catalog"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/clients"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/config"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/events"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/httpapi"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/middleware"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/service"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/state"
)

const eventSource = "inbound-carrier-sales"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Run the HTTP API until SIGINT or SIGTERM. Configuration is read from the\nenvironment and an optional .env file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("starting carrier-sales",
		"version", version,
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store_type", cfg.StoreType,
	)

	cat, err := catalog.LoadFile(cfg.LoadsFile)
	if err != nil {
		return err
	}
	slog.Info("loads catalog ready", "file", cfg.LoadsFile, "loads", cat.Len())

	records, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.FMCSAWebKey == "" {
		slog.Warn("FMCSA_WEBKEY is not set, carrier verification will fail")
	}
	verifier := clients.NewFMCSAClient(cfg.FMCSABaseURL, cfg.FMCSAWebKey, cfg.FMCSATimeout)
	publisher := events.NewPublisher(eventSource, cfg.EventsWebhookURL, cfg.EventsAPIKey)

	svc := service.New(state.New(), cat, verifier, records, publisher)

	opts := httpapi.Options{
		APIKeys:        middleware.ParseAPIKeys(cfg.APIKeys),
		RequestTimeout: cfg.RequestTimeout,
	}
	if opts.APIKeys.Len() == 0 {
		slog.Warn("API_KEYS is empty, every protected request will be rejected")
	}
	if cfg.RateLimitPerMinute > 0 {
		opts.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpapi.NewRouter(svc, opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.RequestTimeout > srv.WriteTimeout {
		srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-quit:
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := publisher.Flush(shutdownCtx); err != nil {
		slog.Warn("pending event webhooks abandoned", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
