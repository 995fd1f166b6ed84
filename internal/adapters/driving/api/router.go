package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// NewRouter builds the HTTP handler for h.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/", h.Chat)
			r.Post("/stream", h.ChatStream)
			r.Get("/conversations", h.ListConversations)
			r.Get("/conversations/{id}", h.GetConversation)
			r.Delete("/conversations/{id}", h.DeleteConversation)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/upload", h.UploadDocument)
			r.Post("/url", h.AddURL)
			r.Get("/stats/overview", h.DocumentStats)
			r.Get("/{id}", h.GetDocument)
			r.Delete("/{id}", h.DeleteDocument)
			r.Get("/{id}/events", h.DocumentEvents)
		})
	})

	return r
}

// accessLog logs one line per request after it completes.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.With(map[string]any{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request")
	})
}
