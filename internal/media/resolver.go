// Package media validates embed URLs against the provider registry and the
// resource fetcher, translating resolution failures into user-facing
// messages.
package media

import (
	"context"
	"sort"

	"github.com/mediaburst/embedresolver/internal/oembed"
)

// ProviderRegistry exposes the registry operations the resolver needs.
type ProviderRegistry interface {
	GetAll(ctx context.Context) (map[string]oembed.Provider, error)
	Get(ctx context.Context, name string) (oembed.Provider, error)
}

// URLResolver matches embed URLs against known provider endpoint schemes.
type URLResolver struct {
	registry ProviderRegistry
}

// NewURLResolver constructs a resolver backed by the provider registry.
func NewURLResolver(registry ProviderRegistry) *URLResolver {
	return &URLResolver{registry: registry}
}

// ProviderByURL returns the first provider with an endpoint scheme matching
// the embed URL. Providers are checked in name order so resolution is
// deterministic. No match fails with a ResourceError.
func (r *URLResolver) ProviderByURL(ctx context.Context, embedURL string) (oembed.Provider, error) {
	providers, err := r.registry.GetAll(ctx)
	if err != nil {
		return oembed.Provider{}, err
	}

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		provider := providers[name]
		for _, endpoint := range provider.Endpoints {
			if endpoint.MatchesURL(embedURL) {
				return provider, nil
			}
		}
	}

	return oembed.Provider{}, oembed.NewResourceError("No matching provider found.", embedURL, nil, nil)
}
