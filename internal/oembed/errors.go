package oembed

import "fmt"

// ProviderError indicates the provider registry could not be built or
// refreshed from its upstream source.
type ProviderError struct {
	msg   string
	cause error
}

// NewProviderError constructs a ProviderError wrapping an optional cause.
func NewProviderError(msg string, cause error) *ProviderError {
	return &ProviderError{msg: msg, cause: cause}
}

func (e *ProviderError) Error() string {
	return e.msg
}

func (e *ProviderError) Unwrap() error {
	return e.cause
}

// ResourceError indicates a failure to fetch, parse, or construct an
// embeddable resource. It carries the offending URL, the partially decoded
// record when one exists, and the underlying cause for diagnostic chaining.
type ResourceError struct {
	msg   string
	URL   string
	Data  map[string]any
	cause error
}

// NewResourceError constructs a ResourceError. Data and cause may be nil.
func NewResourceError(msg, url string, data map[string]any, cause error) *ResourceError {
	return &ResourceError{msg: msg, URL: url, Data: data, cause: cause}
}

func (e *ResourceError) Error() string {
	return e.msg
}

func (e *ResourceError) Unwrap() error {
	return e.cause
}

// UnknownProviderError reports a registry lookup for a provider name that is
// not present. It carries only the number of known providers, never the
// queried name.
type UnknownProviderError struct {
	Count int
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider (%d providers known)", e.Count)
}
