// Package middleware provides HTTP middleware components for request logging,
// timeout handling, and panic recovery. It integrates with zerolog for
// structured logging and supports request tracing through unique request IDs.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/taskhive/taskhive/internal/common/uuid"
)

// requestIdContextKey is a custom type for the context key storing request IDs.
type requestIdContextKey string

const (
	requestIdKey    = requestIdContextKey("requestId")
	RequestIDHeader = "X-Taskhive-Request-ID"
)

// RequestLogger creates middleware that logs incoming requests and adds a
// unique request ID to both the request context and response headers. The
// request-scoped logger carries the request ID so all downstream log lines
// correlate.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		requestID := newRequestId()
		ctx = context.WithValue(ctx, requestIdKey, requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

		w.Header().Set(RequestIDHeader, requestID)

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		log.Ctx(ctx).Info().Fields(map[string]any{
			"requestURL":    fmt.Sprintf("%s://%s%s", scheme, r.Host, r.RequestURI),
			"requestMethod": r.Method,
			"requestPath":   r.URL.Path,
			"remoteIP":      r.RemoteAddr,
			"proto":         r.Proto,
		}).Msg("incoming request")

		defer func() {
			log.Ctx(ctx).Info().
				Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
				Msg("request completed")
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIdFromContext returns the request ID set by RequestLogger, or an
// empty string when the request did not pass through it.
func RequestIdFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIdKey).(string); ok {
		return id
	}
	return ""
}

// newRequestId generates a unique request identifier, falling back to a
// timestamp-based ID if UUID generation fails.
func newRequestId() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
