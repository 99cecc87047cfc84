package oembed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mediaburst/embedresolver/internal/cache"
)

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SessionStarter negotiates a short-lived authenticated session token with
// the external video service.
type SessionStarter interface {
	StartSession(ctx context.Context, secret, userID, kind, partnerID string, expirySeconds int, privileges string) (string, error)
}

// ProviderLookup resolves provider names, typically backed by the Registry.
type ProviderLookup interface {
	Get(ctx context.Context, name string) (Provider, error)
}

const (
	// resourceURLPrefixLen is the length of the endpoint boilerplate
	// ("http://www.kaltura.com/oembed?url=") preceding the encoded embed
	// markup in a built resource URL.
	resourceURLPrefixLen = 34

	sessionKindUser      = "user"
	sessionExpirySeconds = 86400
	thumbnailSuffix      = ".jpeg"

	forcedWidth           = 500
	forcedHeight          = 500
	forcedThumbnailWidth  = 120
	forcedThumbnailHeight = 68

	resourceCacheKeyPrefix = "media:oembed_resource:"
)

var (
	partnerIDPattern = regexp.MustCompile(`/p/(.+)/sp/`)
	entryIDPattern   = regexp.MustCompile(`entry_id=(.+)" width`)
)

// FetcherConfig carries the credentials and endpoints the fetcher needs.
type FetcherConfig struct {
	// Username and Password are the partner credentials presented to the
	// session service.
	Username string
	Password string

	// MediaBaseURL is the base URL of the media API.
	MediaBaseURL string
}

// Fetcher resolves a built resource URL into a validated Resource: it
// extracts the identifying parameters, authenticates, requests the resource
// metadata, parses it by content type, normalizes the record, caches it, and
// constructs the canonical value.
type Fetcher struct {
	cfg       FetcherConfig
	client    Doer
	providers ProviderLookup
	sessions  SessionStarter
	store     cache.Store
	logger    *slog.Logger
}

// NewFetcher constructs a resource fetcher.
func NewFetcher(cfg FetcherConfig, client Doer, providers ProviderLookup, sessions SessionStarter, store cache.Store, logger *slog.Logger) *Fetcher {
	if strings.TrimSpace(cfg.MediaBaseURL) == "" {
		cfg.MediaBaseURL = "http://www.kaltura.com"
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		cfg:       cfg,
		client:    client,
		providers: providers,
		sessions:  sessions,
		store:     store,
		logger:    logger,
	}
}

// FetchResource resolves the resource URL produced by
// Endpoint.BuildResourceURL into a Resource. A fresh session is negotiated
// on every call; no retries are performed and every failure surfaces as a
// ResourceError.
func (f *Fetcher) FetchResource(ctx context.Context, rawURL string) (*Resource, error) {
	userID := f.cfg.Username
	secret := f.cfg.Password

	markup := embedMarkup(rawURL)

	partnerID, err := extractPattern(partnerIDPattern, markup)
	if err != nil {
		return nil, NewResourceError("could not extract a partner id from the embed markup", rawURL, nil, err)
	}
	entryID, err := extractPattern(entryIDPattern, markup)
	if err != nil {
		return nil, NewResourceError("could not extract an entry id from the embed markup", rawURL, nil, err)
	}

	token, err := f.sessions.StartSession(ctx, secret, userID, sessionKindUser, partnerID, sessionExpirySeconds, "")
	if err != nil {
		return nil, NewResourceError("Invalid login", userID, nil, err)
	}

	requestURL := fmt.Sprintf("%s/api_v3/index.php?service=media&action=get&entryId=%s&ks=%s", f.cfg.MediaBaseURL, entryID, token)
	cacheKey := resourceCacheKeyPrefix + requestURL

	cached := map[string]any{}
	if ok, err := f.store.Get(ctx, cacheKey, &cached); err == nil && ok {
		return f.createResource(ctx, cached, requestURL)
	}

	record, err := f.requestRecord(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	f.normalizeRecord(record, markup)

	if err := f.store.Set(ctx, cacheKey, record, time.Time{}); err != nil {
		f.logger.Warn("caching resource record failed", "url", requestURL, "error", err)
	}

	return f.createResource(ctx, record, requestURL)
}

// requestRecord issues the metadata request and decodes the response into
// the canonical key/value shape based on its declared content type.
func (f *Fetcher) requestRecord(ctx context.Context, requestURL string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, NewResourceError("Could not retrieve the oEmbed resource.", requestURL, nil, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, NewResourceError("Could not retrieve the oEmbed resource.", requestURL, nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewResourceError("Could not retrieve the oEmbed resource.", requestURL, nil, err)
	}

	format := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(format, "text/xml") || strings.Contains(format, "application/xml"):
		return parseResourceXML(body, requestURL)
	case strings.Contains(format, "text/javascript") || strings.Contains(format, "application/json"):
		record := map[string]any{}
		if err := json.Unmarshal(body, &record); err != nil {
			return nil, NewResourceError(err.Error(), requestURL, nil, err)
		}
		return record, nil
	default:
		return nil, NewResourceError("The fetched resource did not have a valid Content-Type header.", requestURL, nil, nil)
	}
}

// normalizeRecord applies the provider-specific field adjustments to the
// decoded record before caching and variant construction.
func (f *Fetcher) normalizeRecord(record map[string]any, markup string) {
	record["provider_name"] = "Kaltura"
	record["thumbnailUrl"] = stringField(record, "thumbnailUrl") + thumbnailSuffix
	record["type"] = string(TypeVideo)
	record["title"] = record["name"]
	record["html"] = strings.ReplaceAll(markup, `"`, "'")
	record["thumbnail_width"] = forcedThumbnailWidth
	record["thumbnail_height"] = forcedThumbnailHeight
	if _, ok := record["width"]; ok {
		record["width"] = forcedWidth
	}
	if _, ok := record["height"]; ok {
		record["height"] = forcedHeight
	}
}

// createResource promotes a normalized record to the matching Resource
// variant. Field validation failures are re-wrapped as ResourceError; the
// lower-level error is preserved as the cause.
func (f *Fetcher) createResource(ctx context.Context, record map[string]any, url string) (*Resource, error) {
	opts := ResourceOptions{
		Title:           stringField(record, "title"),
		AuthorName:      stringField(record, "author_name"),
		AuthorURL:       stringField(record, "author_url"),
		CacheAge:        intField(record, "cache_age"),
		ThumbnailURL:    stringField(record, "thumbnailUrl"),
		ThumbnailWidth:  intField(record, "thumbnail_width"),
		ThumbnailHeight: intField(record, "thumbnail_height"),
	}

	if name := stringField(record, "provider_name"); name != "" {
		provider, err := f.providers.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		opts.Provider = &provider
	}

	var (
		resource *Resource
		err      error
	)
	resourceType := stringField(record, "type")
	switch ResourceType(resourceType) {
	case TypeLink:
		resource, err = NewLinkResource(stringField(record, "url"), opts)
	case TypePhoto:
		resource, err = NewPhotoResource(stringField(record, "url"), intField(record, "width"), intField(record, "height"), opts)
	case TypeRich:
		resource, err = NewRichResource(stringField(record, "html"), intField(record, "width"), intField(record, "height"), opts)
	case TypeVideo:
		resource, err = NewVideoResource(stringField(record, "html"), intField(record, "width"), intField(record, "height"), opts)
	default:
		return nil, NewResourceError("Unknown resource type: "+resourceType, url, record, nil)
	}
	if err != nil {
		return nil, NewResourceError(err.Error(), url, record, err)
	}
	return resource, nil
}

// embedMarkup recovers the URL-decoded embed markup from a built resource
// URL by skipping the endpoint boilerplate prefix.
func embedMarkup(rawURL string) string {
	if len(rawURL) <= resourceURLPrefixLen {
		return ""
	}
	trimmed := rawURL[resourceURLPrefixLen:]
	decoded, err := url.QueryUnescape(trimmed)
	if err != nil {
		return trimmed
	}
	return decoded
}

func extractPattern(pattern *regexp.Regexp, markup string) (string, error) {
	match := pattern.FindStringSubmatch(markup)
	if len(match) < 2 || match[1] == "" {
		return "", fmt.Errorf("pattern %s did not match the embed markup", pattern)
	}
	return match[1], nil
}

func stringField(record map[string]any, key string) string {
	if value, ok := record[key].(string); ok {
		return value
	}
	return ""
}

// intField reads a numeric record field, tolerating the string values XML
// parsing produces and the float64 values JSON decoding produces.
func intField(record map[string]any, key string) int {
	switch value := record[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
