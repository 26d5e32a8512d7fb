package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/itransmotors/carbot/internal/metrics"
)

// Routes builds the API router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/health", h.HealthCheck)
	r.Get("/api/locations", h.GetLocations)
	r.Post("/api/calculate", h.Calculate)
	r.Post("/api/session", h.CreateSession)
	r.Delete("/api/session", h.DeleteSession)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireStaff)
		pr.Post("/api/tariffs/refresh", h.RefreshTariffs)
		pr.Get("/api/calculations", h.GetCalculations)
		pr.Get("/api/sync-history", h.GetSyncHistory)
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestId", middleware.GetReqID(r.Context())))
	})
}
