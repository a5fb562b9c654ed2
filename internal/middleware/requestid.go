// Package middleware holds the HTTP handlers wrapped around every API route.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID tags each request with an id, taken from X-Request-ID or
// generated, and stores a logger carrying it in the request context.
func RequestID(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if rid == "" || len(rid) > 64 {
				rid = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, rid)

			logger := base.With().Str("rid", rid).Logger()
			ctx := context.WithValue(logger.WithContext(r.Context()), requestIDKey{}, rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetRequestID(r *http.Request) string {
	rid, _ := r.Context().Value(requestIDKey{}).(string)
	return rid
}

// Log returns the request's logger. Outside RequestID it is disabled.
func Log(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}
