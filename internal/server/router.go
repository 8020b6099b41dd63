package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fintor-ai/fintor/internal/api"
	"github.com/fintor-ai/fintor/internal/api/handlers"
	"github.com/fintor-ai/fintor/internal/api/middleware"
)

type RouterConfig struct {
	RetrievalHandler *handlers.RetrievalHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/knowledge", cfg.RetrievalHandler.AddKnowledge)
	r.Delete("/knowledge/{entityType}/{entityID}", cfg.RetrievalHandler.DeleteKnowledge)
	r.Post("/search", cfg.RetrievalHandler.Search)
	r.Post("/search/financial", cfg.RetrievalHandler.SearchFinancial)

	return r
}
