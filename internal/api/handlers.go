package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vytor/flashdeck/internal/deck"
	"github.com/vytor/flashdeck/internal/errors"
	"github.com/vytor/flashdeck/internal/logger"
	"github.com/vytor/flashdeck/internal/models"
	"github.com/vytor/flashdeck/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	Study services.StudyService
	DB    Pinger

	validate *validator.Validate
}

// NewServer creates the HTTP adapter over the study service.
func NewServer(study services.StudyService, db Pinger) *Server {
	return &Server{
		Study:    study,
		DB:       db,
		validate: newValidator(),
	}
}

type viewRequest struct {
	Filter string `json:"filter" validate:"omitempty,oneof=all favorites easy medium hard due"`
	Query  string `json:"query" validate:"max=200"`
}

type srsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type rateRequest struct {
	Rating string `json:"rating" validate:"required,oneof=easy medium hard"`
}

type advanceRequest struct {
	Direction string `json:"direction" validate:"required,oneof=forward backward"`
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"decks": s.Study.ListDecks(r.Context())})
}

func (s *Server) handleOpenDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	category := chi.URLParam(r, "category")
	log.Debug("open deck requested: category=%s", category)

	state, err := s.Study.Open(r.Context(), category)
	s.respondState(w, r, state, err)
}

func (s *Server) handleDeckState(w http.ResponseWriter, r *http.Request) {
	state, err := s.Study.State(r.Context())
	s.respondState(w, r, state, err)
}

func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	filter, err := models.ParseFilter(req.Filter)
	if err != nil {
		handleError(w, r, errors.NewValidationError("filter", err.Error()))
		return
	}

	state, err := s.Study.SetView(r.Context(), filter, req.Query)
	s.respondState(w, r, state, err)
}

func (s *Server) handleSetSRS(w http.ResponseWriter, r *http.Request) {
	var req srsRequest
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	state, err := s.Study.SetUseSRS(r.Context(), *req.Enabled)
	s.respondState(w, r, state, err)
}

func (s *Server) handleRateCard(w http.ResponseWriter, r *http.Request) {
	id, err := cardIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req rateRequest
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	rating, err := models.ParseDifficulty(req.Rating)
	if err != nil {
		handleError(w, r, errors.NewValidationError("rating", err.Error()))
		return
	}

	state, err := s.Study.Rate(r.Context(), id, rating)
	s.respondState(w, r, state, err)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := cardIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	state, err := s.Study.ToggleFavorite(r.Context(), id)
	s.respondState(w, r, state, err)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := s.decode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	dir := deck.Forward
	if req.Direction == "backward" {
		dir = deck.Backward
	}

	state, err := s.Study.Advance(r.Context(), dir)
	s.respondState(w, r, state, err)
}

func (s *Server) handleStartReview(w http.ResponseWriter, r *http.Request) {
	state, err := s.Study.StartHardReview(r.Context())
	s.respondState(w, r, state, err)
}

func (s *Server) handleDismissPrompt(w http.ResponseWriter, r *http.Request) {
	state, err := s.Study.DismissPrompt(r.Context())
	s.respondState(w, r, state, err)
}

func (s *Server) handleExitReview(w http.ResponseWriter, r *http.Request) {
	state, err := s.Study.ExitReview(r.Context())
	s.respondState(w, r, state, err)
}

func (s *Server) handleResetDeck(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Info("deck reset requested")
	state, err := s.Study.ResetDeck(r.Context())
	s.respondState(w, r, state, err)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.Study.Sessions(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleResetAllData(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Warn("reset of all data requested")
	if err := s.Study.ResetAllData(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondState(w http.ResponseWriter, r *http.Request, state *services.DeckState, err error) {
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
