package httpx

import (
	"net/http"
	"strings"
)

// WithCORS allows browser calls from the hospital site. origins is a
// comma-separated list; empty (or a "*" entry) allows any origin, which
// matches the public marketing pages.
func WithCORS(origins string) Middleware {
	allowAny := strings.TrimSpace(origins) == ""
	allowed := map[string]bool{}
	for _, o := range strings.Split(origins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAny = true
			continue
		}
		if o != "" {
			allowed[strings.ToLower(o)] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			headers := w.Header()
			switch {
			case allowAny:
				headers.Set("Access-Control-Allow-Origin", "*")
			case allowed[strings.ToLower(origin)]:
				headers.Set("Access-Control-Allow-Origin", origin)
				headers.Add("Vary", "Origin")
			default:
				next.ServeHTTP(w, r)
				return
			}
			headers.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			headers.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
