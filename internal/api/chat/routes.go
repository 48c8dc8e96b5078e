package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers chat routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/", h.Chat)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Get("/sessions/{sessionID}/history", h.GetHistory)
		r.Get("/sessions/{sessionID}/transcript", h.GetTranscript)
	})
}
