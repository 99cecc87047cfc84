package oembed

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ProviderDefinition mirrors one entry of an oEmbed providers.json document.
// Definitions are the untyped upstream shape; Provider is the validated form.
type ProviderDefinition struct {
	Name      string               `json:"provider_name"`
	URL       string               `json:"provider_url"`
	Endpoints []EndpointDefinition `json:"endpoints"`
}

// EndpointDefinition mirrors one endpoint entry of a provider definition.
type EndpointDefinition struct {
	Schemes   []string `json:"schemes"`
	URL       string   `json:"url"`
	Discovery bool     `json:"discovery"`
}

// Provider describes a known embed source together with its endpoint
// matching rules. The registry keys providers by name.
type Provider struct {
	Name      string     `json:"provider_name"`
	URL       string     `json:"provider_url"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Endpoint maps a set of URL scheme patterns to a resource request template.
type Endpoint struct {
	Schemes   []string `json:"schemes"`
	URL       string   `json:"url"`
	Discovery bool     `json:"discovery"`
}

// NewProvider validates a raw provider definition. The name and homepage URL
// must be non-empty and at least one endpoint must be well formed.
func NewProvider(def ProviderDefinition) (Provider, error) {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return Provider{}, errors.New("provider definition is missing a name")
	}
	if strings.TrimSpace(def.URL) == "" {
		return Provider{}, errors.New("provider definition is missing a homepage URL")
	}

	endpoints := make([]Endpoint, 0, len(def.Endpoints))
	for _, ep := range def.Endpoints {
		if strings.TrimSpace(ep.URL) == "" {
			continue
		}
		endpoints = append(endpoints, Endpoint{
			Schemes:   ep.Schemes,
			URL:       ep.URL,
			Discovery: ep.Discovery,
		})
	}
	if len(endpoints) == 0 {
		return Provider{}, errors.New("provider definition has no usable endpoints")
	}

	return Provider{Name: name, URL: def.URL, Endpoints: endpoints}, nil
}

// MatchesURL reports whether the embed URL matches any of the endpoint's
// scheme patterns. Patterns use `*` as a wildcard.
func (e Endpoint) MatchesURL(embedURL string) bool {
	for _, scheme := range e.Schemes {
		pattern, err := compileScheme(scheme)
		if err != nil {
			continue
		}
		if pattern.MatchString(embedURL) {
			return true
		}
	}
	return false
}

// BuildResourceURL derives the resource request URL for the embed URL. The
// result is deterministic: the endpoint template with the embed URL appended
// as an encoded `url` query parameter.
func (e Endpoint) BuildResourceURL(embedURL string) string {
	base := strings.ReplaceAll(e.URL, "{format}", "json")
	return base + "?url=" + url.QueryEscape(embedURL)
}

func compileScheme(scheme string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(scheme)
	expr := "^" + strings.ReplaceAll(escaped, `\*`, ".*") + "$"
	return regexp.Compile("(?i)" + expr)
}
