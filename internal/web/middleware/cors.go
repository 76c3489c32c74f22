package middleware

import (
	"net/http"
	"strings"
)

// isLocalhostOrigin returns true if the origin is http(s)://localhost[:<port>].
func isLocalhostOrigin(origin string) bool {
	for _, prefix := range []string{"http://localhost", "https://localhost"} {
		rest, ok := strings.CutPrefix(origin, prefix)
		if ok && (rest == "" || strings.HasPrefix(rest, ":")) {
			return true
		}
	}
	return false
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin gets no CORS headers.
func allowOrigin(origin string, allowed map[string]struct{}) string {
	if len(allowed) == 0 {
		return "*"
	}
	if origin == "" {
		return ""
	}
	if isLocalhostOrigin(origin) {
		return origin
	}
	if _, ok := allowed[origin]; ok {
		return origin
	}
	return ""
}

// CORS returns middleware that handles CORS headers.
// With no configured origins every origin is allowed, which is what the
// browser-free local app and ad-hoc tooling expect. With an allow-list only
// those origins (and localhost on any port) receive CORS headers.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if value := allowOrigin(r.Header.Get("Origin"), allowed); value != "" {
				w.Header().Set("Access-Control-Allow-Origin", value)
				if value != "*" {
					w.Header().Add("Vary", "Origin")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
