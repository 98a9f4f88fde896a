package middleware

import (
	"net/http"
	"strings"
)

// OriginMatcher builds an allowlist check from configured origins. "*"
// allows any origin.
func OriginMatcher(allowedOrigins []string) func(origin string) bool {
	allowAny := false
	allow := map[string]struct{}{}
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAny = true
			continue
		}
		allow[origin] = struct{}{}
	}
	return func(origin string) bool {
		if allowAny {
			return true
		}
		_, ok := allow[origin]
		return ok
	}
}

// CORS provides an allowlist-based CORS middleware for the storefront theme.
// Credentials are allowed so the theme's session and cart cookies travel
// with widget calls.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := OriginMatcher(allowedOrigins)

	allowedHeaders := "Content-Type, X-Session-Id, X-Request-ID"
	allowedMethods := "GET, POST, OPTIONS"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" && allowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
				w.Header().Set("Access-Control-Expose-Headers", "X-Session-Id")
				w.Header().Set("Access-Control-Max-Age", "600")
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
