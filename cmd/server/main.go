package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dgrantham/chexport/internal/config"
	"github.com/dgrantham/chexport/internal/export"
	"github.com/dgrantham/chexport/internal/logging"
	"github.com/dgrantham/chexport/internal/registry"
	"github.com/dgrantham/chexport/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"registry_base_url", cfg.Registry.BaseURL,
		"registry_max_retries", cfg.Registry.MaxRetries,
		"fallback_to_name_search", cfg.Registry.FallbackToNameSearch,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Build the registry client with its outbound sliding-window limiter
	client := registry.New(registry.Config{
		BaseURL:              cfg.Registry.BaseURL,
		APIKey:               cfg.Registry.APIKey,
		Timeout:              cfg.Registry.Timeout,
		MaxRetries:           cfg.Registry.MaxRetries,
		FallbackToNameSearch: cfg.Registry.FallbackToNameSearch,
		Limiter:              registry.NewRateLimiter(cfg.Registry.WindowRequests, cfg.Registry.Window),
	})
	if !client.Configured() {
		slog.Warn("REGISTRY_API_KEY is not set; exports will fail until it is configured")
	}

	service := export.NewService(client)
	server := web.NewServer(service, client, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
