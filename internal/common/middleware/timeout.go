package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/taskhive/taskhive/internal/common/httpx"
)

// SetTimeout creates middleware that enforces a timeout for request handling.
// If the handler exceeds the duration, a timeout error response is written,
// provided headers have not been sent yet.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			rw := httpx.NewResponseWriter(w)
			r = r.WithContext(ctx)

			done := make(chan struct{})
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						log.Ctx(ctx).Error().Msgf("panic in handler: %v", rec)
					}
					close(done)
				}()
				next.ServeHTTP(rw, r)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				if !rw.Written() {
					(&httpx.Error{
						Description: "request timed out",
						StatusCode:  http.StatusGatewayTimeout,
					}).Send(rw)
				}
				log.Ctx(ctx).Error().Msg("request timed out")
				return
			}
		})
	}
}
