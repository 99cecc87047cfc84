package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mediaburst/embedresolver/internal/logging"
)

// ResolveHandler exposes embed URL resolution over HTTP.
type ResolveHandler struct {
	Resolver EmbedResolver
	Limiter  RateLimiter
}

// Resolve handles GET /api/v1/resolve?url=<embed url>.
func (h ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "resolve") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	if h.Resolver == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "resolution services unavailable"})
		return
	}

	embedURL := r.URL.Query().Get("url")
	if strings.TrimSpace(embedURL) == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "url query parameter is required"})
		return
	}

	resource, violation := h.Resolver.Resolve(ctx, embedURL)
	if violation != nil {
		respondJSON(ctx, w, http.StatusUnprocessableEntity, map[string]string{"error": violation.Message})
		return
	}

	respondJSON(ctx, w, http.StatusOK, resource)
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}
