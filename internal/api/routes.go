package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const requestTimeout = 10 * time.Second

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Get("/decks", s.handleListDecks)
	r.Post("/decks/{category}/open", s.handleOpenDeck)

	r.Route("/deck", func(r chi.Router) {
		r.Get("/", s.handleDeckState)
		r.Put("/view", s.handleSetView)
		r.Put("/srs", s.handleSetSRS)
		r.Post("/cards/{id}/rate", s.handleRateCard)
		r.Post("/cards/{id}/favorite", s.handleToggleFavorite)
		r.Post("/advance", s.handleAdvance)
		r.Post("/review/start", s.handleStartReview)
		r.Post("/review/dismiss", s.handleDismissPrompt)
		r.Post("/review/exit", s.handleExitReview)
		r.Post("/reset", s.handleResetDeck)
	})

	r.Get("/sessions", s.handleSessions)
	r.Post("/data/reset", s.handleResetAllData)
	return r
}
