package api

import (
	"net/http"

	"github.com/verdantlabs/canopy/core/pkg/auth"
)

// RouterOptions controls optional middleware on the router.
type RouterOptions struct {
	// Validator enables JWT auth on non-public paths. Nil leaves the
	// API open (local development only).
	Validator *auth.JWTValidator
	// RateLimiter enables per-IP rate limiting when non-nil.
	RateLimiter *GlobalRateLimiter
}

// NewRouter wires the HTTP routes and middleware chain.
func NewRouter(svc *Service, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", svc.HandleHealth)
	mux.HandleFunc("POST /api/facilities/{facilityID}/ai/call", svc.HandleCall)

	var handler http.Handler = mux
	if opts.Validator != nil {
		handler = auth.NewMiddleware(opts.Validator)(handler)
	}
	if opts.RateLimiter != nil {
		handler = opts.RateLimiter.Middleware(handler)
	}
	return handler
}
