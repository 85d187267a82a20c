package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/hellobridge/internal/http/middlewares"
	"github.com/dropDatabas3/hellobridge/internal/rate"
)

// RouterDeps contiene todo lo necesario para armar el router.
type RouterDeps struct {
	Handlers       *Handlers
	MetricsHandler http.Handler
	CORSOrigins    []string
	// Limiter limita los endpoints de autenticación por IP. Opcional.
	Limiter rate.Limiter
}

// NewRouter arma el router del bridge con la cadena de middlewares estándar.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	h := deps.Handlers

	// Health y métricas van sin no-store ni CORS.
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(mw.WithRateLimit(deps.Limiter))
		}
		r.Post("/signin", h.SignIn)
		r.Post("/signup", h.SignUp)
		r.Route("/social", func(r chi.Router) {
			r.Get("/{provider}/start", h.SocialStart)
			r.Get("/{provider}/callback", h.SocialCallback)
			r.Post("/complete", h.SocialComplete)
		})
	})

	chain := []mw.Middleware{
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithNoStore(),
	}
	if len(deps.CORSOrigins) > 0 {
		chain = append(chain, mw.WithCORS(deps.CORSOrigins))
	}
	chain = append(chain, mw.WithLogging())

	return WithMetrics(mw.Chain(r, chain...))
}
