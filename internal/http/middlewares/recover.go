package middlewares

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/hellobridge/internal/observability/logger"
)

// WithRecover atrapa pánicos y responde 500 con el envelope estándar.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					rid := w.Header().Get("X-Request-ID")
					logger.From(r.Context()).Error("panic recovered",
						logger.RequestID(rid),
						logger.Path(r.URL.Path),
						logger.Any("recover", rec),
					)
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"error":             "internal_error",
						"error_description": "panic recover",
						"error_code":        1500,
						"request_id":        rid,
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
