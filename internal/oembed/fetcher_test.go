package oembed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/mediaburst/embedresolver/internal/cache"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

type stubSessions struct {
	token string
	err   error
	calls int

	lastPartnerID string
	lastKind      string
	lastExpiry    int
}

func (s *stubSessions) StartSession(_ context.Context, _, _, kind, partnerID string, expirySeconds int, _ string) (string, error) {
	s.calls++
	s.lastPartnerID = partnerID
	s.lastKind = kind
	s.lastExpiry = expirySeconds
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

type stubLookup struct {
	provider Provider
	err      error
}

func (s *stubLookup) Get(context.Context, string) (Provider, error) {
	if s.err != nil {
		return Provider{}, s.err
	}
	return s.provider, nil
}

const testMarkup = `<iframe src="https://cdnapisec.kaltura.com/p/12345/sp/1234500/embedIframeJs/uiconf_id/100?entry_id=abcde" width="560" height="395"></iframe>`

func builtResourceURL(markup string) string {
	endpoint := Endpoint{Schemes: []string{"<iframe*"}, URL: "http://www.kaltura.com/oembed"}
	return endpoint.BuildResourceURL(markup)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestFetcher(client Doer, sessions SessionStarter, store cache.Store) *Fetcher {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	lookup := &stubLookup{provider: Provider{Name: "Kaltura", URL: "http://www.kaltura.com/"}}
	return NewFetcher(FetcherConfig{Username: "partner@example.com", Password: "secret"}, client, lookup, sessions, store, nil)
}

func TestEmbedMarkupRoundTrip(t *testing.T) {
	if got := embedMarkup(builtResourceURL(testMarkup)); got != testMarkup {
		t.Fatalf("embedMarkup() = %q want %q", got, testMarkup)
	}
}

func TestFetchResourceEndToEnd(t *testing.T) {
	sessions := &stubSessions{token: "KS123"}
	var requested string
	client := doerFunc(func(req *http.Request) (*http.Response, error) {
		requested = req.URL.String()
		return jsonResponse(`{"name":"clip","thumbnailUrl":"http://x/y","objectType":"KalturaMediaEntry","width":640,"height":360}`), nil
	})

	fetcher := newTestFetcher(client, sessions, nil)

	resource, err := fetcher.FetchResource(context.Background(), builtResourceURL(testMarkup))
	if err != nil {
		t.Fatalf("FetchResource() error = %v", err)
	}

	if sessions.lastPartnerID != "12345" {
		t.Fatalf("expected partner id 12345 got %q", sessions.lastPartnerID)
	}
	if sessions.lastKind != "user" || sessions.lastExpiry != 86400 {
		t.Fatalf("unexpected session parameters: kind=%q expiry=%d", sessions.lastKind, sessions.lastExpiry)
	}
	wantURL := "http://www.kaltura.com/api_v3/index.php?service=media&action=get&entryId=abcde&ks=KS123"
	if requested != wantURL {
		t.Fatalf("requested %q want %q", requested, wantURL)
	}

	if resource.Type() != TypeVideo {
		t.Fatalf("expected video resource got %s", resource.Type())
	}
	if resource.Title() != "clip" {
		t.Fatalf("expected title clip got %q", resource.Title())
	}
	if resource.ThumbnailURL() != "http://x/y.jpeg" {
		t.Fatalf("expected thumbnail suffix applied got %q", resource.ThumbnailURL())
	}
	if resource.Width() != 500 || resource.Height() != 500 {
		t.Fatalf("expected forced 500x500 got %dx%d", resource.Width(), resource.Height())
	}
	if resource.ThumbnailWidth() != 120 || resource.ThumbnailHeight() != 68 {
		t.Fatalf("expected 120x68 thumbnail got %dx%d", resource.ThumbnailWidth(), resource.ThumbnailHeight())
	}
	if strings.Contains(resource.HTML(), `"`) {
		t.Fatalf("expected double quotes replaced in markup: %q", resource.HTML())
	}
	if resource.Provider() == nil || resource.Provider().Name != "Kaltura" {
		t.Fatalf("expected Kaltura provider got %+v", resource.Provider())
	}
}

func TestFetchResourcePopulatesCache(t *testing.T) {
	sessions := &stubSessions{token: "KS123"}
	networkCalls := 0
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		networkCalls++
		return jsonResponse(`{"name":"clip","thumbnailUrl":"http://x/y","width":640,"height":360}`), nil
	})

	fetcher := newTestFetcher(client, sessions, nil)
	ctx := context.Background()
	rawURL := builtResourceURL(testMarkup)

	if _, err := fetcher.FetchResource(ctx, rawURL); err != nil {
		t.Fatalf("FetchResource() error = %v", err)
	}
	resource, err := fetcher.FetchResource(ctx, rawURL)
	if err != nil {
		t.Fatalf("FetchResource() error = %v", err)
	}

	if networkCalls != 1 {
		t.Fatalf("expected cached record to suppress refetch, got %d network calls", networkCalls)
	}
	if resource.Title() != "clip" || resource.Width() != 500 {
		t.Fatalf("cached record lost fields: title=%q width=%d", resource.Title(), resource.Width())
	}
}

func TestFetchResourceXMLContentType(t *testing.T) {
	sessions := &stubSessions{token: "KS123"}
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		body := `<xml><result><name>clip</name><thumbnailUrl>http://x/y</thumbnailUrl><width>640</width><height>360</height></result></xml>`
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/xml;charset=UTF-8"}},
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	})

	fetcher := newTestFetcher(client, sessions, nil)

	resource, err := fetcher.FetchResource(context.Background(), builtResourceURL(testMarkup))
	if err != nil {
		t.Fatalf("FetchResource() error = %v", err)
	}
	if resource.Title() != "clip" || resource.Width() != 500 || resource.Height() != 500 {
		t.Fatalf("unexpected resource from XML payload: title=%q %dx%d", resource.Title(), resource.Width(), resource.Height())
	}
}

func TestFetchResourceInvalidContentType(t *testing.T) {
	sessions := &stubSessions{token: "KS123"}
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/plain"}},
			Body:       io.NopCloser(strings.NewReader("nope")),
		}, nil
	})

	fetcher := newTestFetcher(client, sessions, nil)

	_, err := fetcher.FetchResource(context.Background(), builtResourceURL(testMarkup))
	var resErr *ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResourceError got %v", err)
	}
	if resErr.Error() != "The fetched resource did not have a valid Content-Type header." {
		t.Fatalf("unexpected message %q", resErr.Error())
	}
}

func TestFetchResourceTransportFailure(t *testing.T) {
	sessions := &stubSessions{token: "KS123"}
	transportErr := errors.New("connection reset")
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, transportErr
	})

	fetcher := newTestFetcher(client, sessions, nil)

	_, err := fetcher.FetchResource(context.Background(), builtResourceURL(testMarkup))
	var resErr *ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResourceError got %v", err)
	}
	if resErr.Error() != "Could not retrieve the oEmbed resource." {
		t.Fatalf("unexpected message %q", resErr.Error())
	}
	if !errors.Is(err, transportErr) {
		t.Fatal("expected transport error preserved as cause")
	}
}

func TestFetchResourceAuthenticationFailure(t *testing.T) {
	sessions := &stubSessions{err: errors.New("START_SESSION_ERROR")}
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected after failed authentication")
		return nil, nil
	})

	fetcher := newTestFetcher(client, sessions, nil)

	_, err := fetcher.FetchResource(context.Background(), builtResourceURL(testMarkup))
	var resErr *ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResourceError got %v", err)
	}
	if resErr.Error() != "Invalid login" {
		t.Fatalf("unexpected message %q", resErr.Error())
	}
	if resErr.URL != "partner@example.com" {
		t.Fatalf("expected user id carried on the error, got %q", resErr.URL)
	}
}

func TestFetchResourceExtractionFailure(t *testing.T) {
	sessions := &stubSessions{token: "KS123"}
	fetcher := newTestFetcher(doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("unreachable")
	}), sessions, nil)

	// Markup without the partner-scoped path segment.
	badMarkup := `<iframe src="https://example.com/video?entry_id=abcde" width="560"></iframe>`
	rawURL := "http://www.kaltura.com/oembed?url=" + url.QueryEscape(badMarkup)

	_, err := fetcher.FetchResource(context.Background(), rawURL)
	var resErr *ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResourceError got %v", err)
	}
	if sessions.calls != 0 {
		t.Fatal("authentication must not run when extraction fails")
	}
}

func TestCreateResourceDispatch(t *testing.T) {
	fetcher := newTestFetcher(nil, &stubSessions{}, nil)
	ctx := context.Background()

	video, err := fetcher.createResource(ctx, map[string]any{
		"type":   "video",
		"html":   "<iframe src='x'></iframe>",
		"width":  500,
		"height": 500,
	}, "http://example.com/r")
	if err != nil {
		t.Fatalf("createResource() error = %v", err)
	}
	if video.Type() != TypeVideo || video.Width() != 500 || video.Height() != 500 {
		t.Fatalf("unexpected video resource: %dx%d", video.Width(), video.Height())
	}

	_, err = fetcher.createResource(ctx, map[string]any{"type": "bogus"}, "http://example.com/r")
	var resErr *ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResourceError got %v", err)
	}
	if !strings.Contains(resErr.Error(), "Unknown resource type: bogus") {
		t.Fatalf("unexpected message %q", resErr.Error())
	}
}

func TestCreateResourceWrapsValidationFailure(t *testing.T) {
	fetcher := newTestFetcher(nil, &stubSessions{}, nil)

	_, err := fetcher.createResource(context.Background(), map[string]any{
		"type":   "video",
		"width":  500,
		"height": 500,
	}, "http://example.com/r")

	var resErr *ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected validation failure wrapped as ResourceError, got %v", err)
	}
	if resErr.Data == nil {
		t.Fatal("expected the offending record attached to the error")
	}
	if errors.Unwrap(resErr) == nil {
		t.Fatal("expected the validation error preserved as cause")
	}
}
