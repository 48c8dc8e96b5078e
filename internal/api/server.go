package api

import (
	"net/http"
	"strings"

	chatapi "github.com/futig/rag-chat/internal/api/chat"
	"github.com/futig/rag-chat/internal/api/docs"
	"github.com/futig/rag-chat/internal/api/middleware"
	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(chatHandler *chatapi.Handler, cfg config.HTTPConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigin),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		// the chat stream reports completion in a trailer
		ExposedHeaders: []string{chatapi.StreamStatusHeader, "Content-Disposition"},
		MaxAge:         300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{"status": "healthy"})
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	chatapi.RegisterRoutes(r, chatHandler)

	return r
}

// allowedOrigins splits a comma separated CORS_ALLOWED_ORIGIN value.
func allowedOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
