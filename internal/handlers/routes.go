package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	resolve := ResolveHandler{Resolver: deps.Resolver, Limiter: deps.Limiter}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/resolve", resolve.Resolve)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Resolver EmbedResolver
	Limiter  RateLimiter
}
