// Package httpapi exposes a Gate to the dashboard UI over JSON/HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/adminGate/middleware"
	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig wires the router. Metrics, Health and Admin are optional.
type RouterConfig struct {
	Handler *Handler
	Metrics http.Handler
	Health  *HealthHandler
	// Admin is mounted under /admin behind the session guard.
	Admin http.Handler
	Log   *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(loggerMiddleware(log))
	r.Use(chimid.Recoverer)
	r.Use(chimid.AllowContentType("application/json"))

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.ServeHTTP)
	} else {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		})
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	h := cfg.Handler
	r.Route("/auth", func(r chi.Router) {
		r.Use(chimid.NoCache)
		r.Post("/login", h.Login)
		r.Post("/verify", h.Verify)
		r.Post("/resend", h.Resend)
		r.Post("/cancel", h.Cancel)
		r.Get("/state", h.State)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireStrict(h.gate))
			r.Get("/session", h.Session)
			r.Post("/logout", h.Logout)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(chimid.NoCache)
		r.Use(middleware.RequireStrict(h.gate))
		r.Get("/me", h.Me)
		if cfg.Admin != nil {
			r.Mount("/", cfg.Admin)
		}
	})

	return r
}

func loggerMiddleware(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimid.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("request_id", chimid.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
