package handlers

import (
	"context"

	"github.com/mediaburst/embedresolver/internal/media"
	"github.com/mediaburst/embedresolver/internal/oembed"
)

// EmbedResolver validates an embed URL and resolves it into a resource.
type EmbedResolver interface {
	Resolve(ctx context.Context, url string) (*oembed.Resource, *media.Violation)
}
