package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mediaburst/embedresolver/internal/cache"
	"github.com/mediaburst/embedresolver/internal/config"
	"github.com/mediaburst/embedresolver/internal/handlers"
	"github.com/mediaburst/embedresolver/internal/httpserver"
	"github.com/mediaburst/embedresolver/internal/middleware"
	"github.com/mediaburst/embedresolver/internal/oembed"
)

// Run bootstraps the embed resolver application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve or providers")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "providers":
		return listProviders(ctx)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	deps, cleanup := buildDependencies(cfg, logger)
	defer cleanup()

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	handler := middleware.RequestLogger(logger)(mux)

	srv := httpserver.New(cfg.AppPort, handler)

	logger.Info("starting http server", "port", cfg.AppPort)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// listProviders prints the known providers and their matching schemes.
func listProviders(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	registry := oembed.NewRegistry(providerSource(cfg), cache.NewMemoryStore(), cfg.ProviderCacheTTL, slog.Default())
	providers, err := registry.GetAll(ctx)
	if err != nil {
		return err
	}

	for name, provider := range providers {
		var schemes []string
		for _, endpoint := range provider.Endpoints {
			schemes = append(schemes, endpoint.Schemes...)
		}
		fmt.Printf("%s\t%s\t%s\n", name, provider.URL, strings.Join(schemes, " "))
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
