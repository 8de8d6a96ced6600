// Package server provides the HTTP API server, middleware, and handlers for AIDA.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/Lokie-ree/aida-sub001/internal/requestctx"
)

// AuthMiddleware returns a middleware that validates X-AIDA-Key or Authorization: Bearer <key>
// and sets the user ID in context. apiKeys maps key -> user ID.
func AuthMiddleware(apiKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-AIDA-Key")
			if key == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					key = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if key == "" {
				writeError(w, http.StatusUnauthorized, "not_authenticated", "Invalid or missing API key")
				return
			}
			var userID string
			for k, u := range apiKeys {
				if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
					userID = u
					break
				}
			}
			if userID == "" {
				writeError(w, http.StatusUnauthorized, "not_authenticated", "Invalid or missing API key")
				return
			}
			r = r.WithContext(requestctx.SetUserID(r.Context(), userID))
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPMiddleware stores the caller's address in the request context for
// audit entries. Run it after middleware.RealIP.
func ClientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := clientIP(r.RemoteAddr); ip != "" {
			r = r.WithContext(requestctx.SetIPAddress(r.Context(), ip))
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// RateLimitMiddleware returns 429 with Retry-After when the user in context
// has exhausted their bucket. A nil limiter disables limiting.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := requestctx.UserID(r.Context())
			if userID == "" || rl.Allow(userID) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests")
		})
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
