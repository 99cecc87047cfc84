package oembed

import (
	"encoding/json"
	"errors"
	"strings"
)

// ResourceType enumerates the closed set of resource variants.
type ResourceType string

const (
	TypeLink  ResourceType = "link"
	TypePhoto ResourceType = "photo"
	TypeRich  ResourceType = "rich"
	TypeVideo ResourceType = "video"
)

// Resource is the canonical, validated description of an embeddable item.
// Instances are immutable once constructed; the variant constructors enforce
// the required fields for each type.
type Resource struct {
	resourceType    ResourceType
	url             string
	html            string
	width           int
	height          int
	provider        *Provider
	title           string
	authorName      string
	authorURL       string
	cacheAge        int
	thumbnailURL    string
	thumbnailWidth  int
	thumbnailHeight int
}

// ResourceOptions carries the optional fields shared by every variant. Zero
// values mean the field is absent.
type ResourceOptions struct {
	Provider        *Provider
	Title           string
	AuthorName      string
	AuthorURL       string
	CacheAge        int
	ThumbnailURL    string
	ThumbnailWidth  int
	ThumbnailHeight int
}

// NewLinkResource constructs a link resource. The URL is required.
func NewLinkResource(url string, opts ResourceOptions) (*Resource, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("link resources must provide a url")
	}
	r := newResource(TypeLink, opts)
	r.url = url
	return r, nil
}

// NewPhotoResource constructs a photo resource. URL and positive dimensions
// are required.
func NewPhotoResource(url string, width, height int, opts ResourceOptions) (*Resource, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("photo resources must provide a url")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("photo resources must have dimensions greater than zero")
	}
	r := newResource(TypePhoto, opts)
	r.url = url
	r.width = width
	r.height = height
	return r, nil
}

// NewRichResource constructs a rich content resource. Markup and positive
// dimensions are required.
func NewRichResource(html string, width, height int, opts ResourceOptions) (*Resource, error) {
	if strings.TrimSpace(html) == "" {
		return nil, errors.New("rich resources must provide embed markup")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("rich resources must have dimensions greater than zero")
	}
	r := newResource(TypeRich, opts)
	r.html = html
	r.width = width
	r.height = height
	return r, nil
}

// NewVideoResource constructs a video resource. Markup and positive
// dimensions are required.
func NewVideoResource(html string, width, height int, opts ResourceOptions) (*Resource, error) {
	if strings.TrimSpace(html) == "" {
		return nil, errors.New("video resources must provide embed markup")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("video resources must have dimensions greater than zero")
	}
	r := newResource(TypeVideo, opts)
	r.html = html
	r.width = width
	r.height = height
	return r, nil
}

func newResource(t ResourceType, opts ResourceOptions) *Resource {
	return &Resource{
		resourceType:    t,
		provider:        opts.Provider,
		title:           opts.Title,
		authorName:      opts.AuthorName,
		authorURL:       opts.AuthorURL,
		cacheAge:        opts.CacheAge,
		thumbnailURL:    opts.ThumbnailURL,
		thumbnailWidth:  opts.ThumbnailWidth,
		thumbnailHeight: opts.ThumbnailHeight,
	}
}

// Type returns the resource variant.
func (r *Resource) Type() ResourceType { return r.resourceType }

// URL returns the resource URL, set for link and photo variants.
func (r *Resource) URL() string { return r.url }

// HTML returns the embed markup, set for rich and video variants.
func (r *Resource) HTML() string { return r.html }

// Width returns the display width in pixels, zero when absent.
func (r *Resource) Width() int { return r.width }

// Height returns the display height in pixels, zero when absent.
func (r *Resource) Height() int { return r.height }

// Provider returns the resolved provider, nil when unknown.
func (r *Resource) Provider() *Provider { return r.provider }

// Title returns the resource title, empty when absent.
func (r *Resource) Title() string { return r.title }

// AuthorName returns the author name, empty when absent.
func (r *Resource) AuthorName() string { return r.authorName }

// AuthorURL returns the author URL, empty when absent.
func (r *Resource) AuthorURL() string { return r.authorURL }

// CacheAge returns the suggested cache lifetime in seconds, zero when absent.
func (r *Resource) CacheAge() int { return r.cacheAge }

// ThumbnailURL returns the thumbnail URL, empty when absent.
func (r *Resource) ThumbnailURL() string { return r.thumbnailURL }

// ThumbnailWidth returns the thumbnail width, zero when absent.
func (r *Resource) ThumbnailWidth() int { return r.thumbnailWidth }

// ThumbnailHeight returns the thumbnail height, zero when absent.
func (r *Resource) ThumbnailHeight() int { return r.thumbnailHeight }

// MarshalJSON renders the resource with oEmbed response field names,
// omitting absent optional fields.
func (r *Resource) MarshalJSON() ([]byte, error) {
	payload := map[string]any{
		"type":    r.resourceType,
		"version": "1.0",
	}
	if r.url != "" {
		payload["url"] = r.url
	}
	if r.html != "" {
		payload["html"] = r.html
	}
	if r.width > 0 {
		payload["width"] = r.width
	}
	if r.height > 0 {
		payload["height"] = r.height
	}
	if r.provider != nil {
		payload["provider_name"] = r.provider.Name
		payload["provider_url"] = r.provider.URL
	}
	if r.title != "" {
		payload["title"] = r.title
	}
	if r.authorName != "" {
		payload["author_name"] = r.authorName
	}
	if r.authorURL != "" {
		payload["author_url"] = r.authorURL
	}
	if r.cacheAge > 0 {
		payload["cache_age"] = r.cacheAge
	}
	if r.thumbnailURL != "" {
		payload["thumbnail_url"] = r.thumbnailURL
	}
	if r.thumbnailWidth > 0 {
		payload["thumbnail_width"] = r.thumbnailWidth
	}
	if r.thumbnailHeight > 0 {
		payload["thumbnail_height"] = r.thumbnailHeight
	}
	return json.Marshal(payload)
}
