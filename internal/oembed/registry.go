package oembed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mediaburst/embedresolver/internal/cache"
)

const providersCacheKey = "media:embed_providers"

// DefaultProviderTTL controls how long the provider snapshot is cached.
const DefaultProviderTTL = 604800 * time.Second

// ProviderSource yields the raw provider definitions the registry is built
// from.
type ProviderSource func(ctx context.Context) ([]ProviderDefinition, error)

// StaticProviderSource returns the single statically known Kaltura provider.
func StaticProviderSource() ProviderSource {
	return func(context.Context) ([]ProviderDefinition, error) {
		return []ProviderDefinition{
			{
				Name: "Kaltura",
				URL:  "http://www.kaltura.com/",
				Endpoints: []EndpointDefinition{
					{
						Schemes:   []string{"<iframe*"},
						URL:       "http://www.kaltura.com/oembed",
						Discovery: true,
					},
				},
			},
		}, nil
	}
}

// HTTPProviderSource fetches a providers.json document from the given URL.
func HTTPProviderSource(client Doer, providersURL string) ProviderSource {
	return func(ctx context.Context) ([]ProviderDefinition, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, providersURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build providers request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch providers: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read providers response: %w", err)
		}

		var defs []ProviderDefinition
		if err := json.Unmarshal(body, &defs); err != nil {
			return nil, fmt.Errorf("decode providers response: %w", err)
		}
		return defs, nil
	}
}

// Registry holds the canonical list of known providers, rebuilt wholesale
// from its source on cache miss or expiry.
type Registry struct {
	source ProviderSource
	store  cache.Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry constructs a provider registry backed by the given cache store.
func NewRegistry(source ProviderSource, store cache.Store, ttl time.Duration, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultProviderTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		source: source,
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// GetAll returns all known providers keyed by name. A cached snapshot is
// returned when present; otherwise the registry is rebuilt from its source
// and cached until now + TTL. Definitions that fail validation are skipped.
func (r *Registry) GetAll(ctx context.Context) (map[string]Provider, error) {
	cached := map[string]Provider{}
	if ok, err := r.store.Get(ctx, providersCacheKey, &cached); err == nil && ok {
		return cached, nil
	}

	defs, err := r.source(ctx)
	if err != nil {
		return nil, NewProviderError("remote oEmbed providers database could not be retrieved", err)
	}
	if len(defs) == 0 {
		return nil, NewProviderError("remote oEmbed providers database returned invalid or empty list", nil)
	}

	keyed := make(map[string]Provider, len(defs))
	for _, def := range defs {
		provider, err := NewProvider(def)
		if err != nil {
			r.logger.Warn("skipping invalid provider definition", "provider", def.Name, "error", err)
			continue
		}
		keyed[provider.Name] = provider
	}

	expiresAt := r.now().Add(r.ttl)
	if err := r.store.Set(ctx, providersCacheKey, keyed, expiresAt); err != nil {
		r.logger.Warn("caching provider snapshot failed", "error", err)
	}
	return keyed, nil
}

// Get returns the named provider. An unknown name fails with an
// UnknownProviderError carrying the current provider count.
func (r *Registry) Get(ctx context.Context, name string) (Provider, error) {
	providers, err := r.GetAll(ctx)
	if err != nil {
		return Provider{}, err
	}
	provider, ok := providers[name]
	if !ok {
		return Provider{}, &UnknownProviderError{Count: len(providers)}
	}
	return provider, nil
}
