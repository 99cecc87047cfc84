package app

import (
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/mediaburst/embedresolver/internal/cache"
	"github.com/mediaburst/embedresolver/internal/config"
	"github.com/mediaburst/embedresolver/internal/handlers"
	"github.com/mediaburst/embedresolver/internal/kaltura"
	"github.com/mediaburst/embedresolver/internal/media"
	"github.com/mediaburst/embedresolver/internal/middleware"
	"github.com/mediaburst/embedresolver/internal/oembed"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup releases any held connections.
func buildDependencies(cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func()) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	store, cleanup := buildCacheStore(cfg)

	registry := oembed.NewRegistry(providerSource(cfg), store, cfg.ProviderCacheTTL, logger)
	sessions := kaltura.NewClient(cfg.SessionServiceURL, httpClient)
	fetcher := oembed.NewFetcher(oembed.FetcherConfig{
		Username:     cfg.Username,
		Password:     cfg.Password,
		MediaBaseURL: cfg.MediaBaseURL,
	}, httpClient, registry, sessions, store, logger)

	resolver := media.NewURLResolver(registry)
	validator := media.NewValidator(resolver, fetcher, cfg.AllowedProviders)

	limiter := middleware.NewIPRateLimiter(cfg.ResolveRateLimit, cfg.ResolveRateWindow, cfg.ResolveRateLimit, 0)

	return handlers.Dependencies{
		Resolver: validator,
		Limiter:  limiter,
	}, cleanup
}

func buildCacheStore(cfg config.Config) (cache.Store, func()) {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryStore(), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return cache.NewRedisStore(rdb), func() { _ = rdb.Close() }
}

func providerSource(cfg config.Config) oembed.ProviderSource {
	if cfg.OEmbedProvidersURL == "" {
		return oembed.StaticProviderSource()
	}
	client := &http.Client{Timeout: cfg.HTTPTimeout}
	return oembed.HTTPProviderSource(client, cfg.OEmbedProvidersURL)
}
