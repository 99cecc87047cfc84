package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mediaburst/embedresolver/internal/logging"
	"github.com/mediaburst/embedresolver/internal/oembed"
)

// User-facing messages emitted when resolution fails. Internal error detail
// goes to the log, never to the caller.
const (
	MsgUnknownProvider = "The given URL does not match any known oEmbed providers."
	MsgProviderError   = "An error occurred while trying to retrieve the oEmbed provider database."
	MsgInvalidResource = "The provided URL does not represent a valid oEmbed resource."
)

// Violation is a user-facing validation failure.
type Violation struct {
	Message string
}

// ResourceFetcher resolves a built resource URL into a Resource.
type ResourceFetcher interface {
	FetchResource(ctx context.Context, url string) (*oembed.Resource, error)
}

// Validator checks that an embed URL belongs to an allowed provider and is
// actually fetchable. Failures are mapped to one of the fixed user-facing
// messages and the full cause chain is logged.
type Validator struct {
	resolver *URLResolver
	fetcher  ResourceFetcher
	allowed  map[string]struct{}
}

// NewValidator constructs a validator. An empty allow-list permits every
// provider the registry knows.
func NewValidator(resolver *URLResolver, fetcher ResourceFetcher, allowedProviders []string) *Validator {
	allowed := make(map[string]struct{}, len(allowedProviders))
	for _, name := range allowedProviders {
		allowed[name] = struct{}{}
	}
	return &Validator{
		resolver: resolver,
		fetcher:  fetcher,
		allowed:  allowed,
	}
}

// Resolve validates the embed URL end to end and returns the fetched
// resource. A non-nil Violation describes why the URL was rejected.
func (v *Validator) Resolve(ctx context.Context, embedURL string) (*oembed.Resource, *Violation) {
	provider, err := v.resolver.ProviderByURL(ctx, embedURL)
	if err != nil {
		var providerErr *oembed.ProviderError
		if errors.As(err, &providerErr) {
			return nil, v.fail(ctx, err, MsgProviderError)
		}
		return nil, v.fail(ctx, err, MsgUnknownProvider)
	}

	if !v.providerAllowed(provider.Name) {
		return nil, &Violation{Message: fmt.Sprintf("The %s provider is not allowed.", provider.Name)}
	}

	// Some URLs match the schemes but do not actually support embedding, so
	// verify that resource fetching works.
	resourceURL := provider.Endpoints[0].BuildResourceURL(embedURL)
	resource, err := v.fetcher.FetchResource(ctx, resourceURL)
	if err != nil {
		return nil, v.fail(ctx, err, MsgInvalidResource)
	}
	return resource, nil
}

func (v *Validator) providerAllowed(name string) bool {
	if len(v.allowed) == 0 {
		return true
	}
	_, ok := v.allowed[name]
	return ok
}

func (v *Validator) fail(ctx context.Context, err error, message string) *Violation {
	logCauseChain(logging.FromContext(ctx), err)
	return &Violation{Message: message}
}

// logCauseChain logs every error in the chain, outermost first, until the
// causes are exhausted.
func logCauseChain(logger *slog.Logger, err error) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		logger.Error(e.Error())
	}
}
