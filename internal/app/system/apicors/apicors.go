// Package apicors sets CORS headers for the /api routes.
//
// The API authenticates with bearer tokens rather than cookies, so
// credentials are never allowed and "*" is a safe default origin.
package apicors

import (
	"net/http"
	"strings"
)

const (
	allowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders  = "Authorization, Content-Type, Accept"
	exposeHeaders = "RateLimit-Limit, RateLimit-Remaining, RateLimit-Reset, Retry-After"
	maxAge        = "86400"
)

// Middleware returns CORS middleware for the given origins. With no origins,
// or with "*" among them, any origin is allowed. Otherwise the request's
// Origin is echoed back only when it is listed; unlisted origins get no
// Access-Control-Allow-Origin and the browser blocks the response.
//
// Preflight OPTIONS requests are answered with 204 and not passed on.
func Middleware(origins ...string) func(http.Handler) http.Handler {
	anyOrigin := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			anyOrigin = true
		}
		if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			} else if origin := r.Header.Get("Origin"); origin != "" {
				h.Add("Vary", "Origin")
				if _, ok := allowed[origin]; ok {
					h.Set("Access-Control-Allow-Origin", origin)
				}
			}
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Expose-Headers", exposeHeaders)
			h.Set("Access-Control-Max-Age", maxAge)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ParseOrigins splits a comma-separated origin list from config.
func ParseOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
