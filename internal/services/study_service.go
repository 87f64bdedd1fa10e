package services

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/vytor/flashdeck/internal/baseline"
	"github.com/vytor/flashdeck/internal/clock"
	"github.com/vytor/flashdeck/internal/deck"
	"github.com/vytor/flashdeck/internal/errors"
	"github.com/vytor/flashdeck/internal/logger"
	"github.com/vytor/flashdeck/internal/models"
	"github.com/vytor/flashdeck/internal/repository"
)

// DeckState is what a client needs to render the active deck.
type DeckState struct {
	CategoryID string                `json:"category_id"`
	State      deck.State            `json:"state"`
	Filter     models.Filter         `json:"filter"`
	Query      string                `json:"query"`
	UseSRS     bool                  `json:"use_srs"`
	Cursor     int                   `json:"cursor"`
	Current    *models.Card          `json:"current,omitempty"`
	View       []models.Card         `json:"view"`
	HardCards  int                   `json:"hard_cards"`
	Scoreboard *models.ReviewSession `json:"scoreboard,omitempty"`
	Stats      models.DeckStats      `json:"stats"`
}

// SessionLog is the full review-session history with its totals.
type SessionLog struct {
	Sessions []models.ReviewSession `json:"sessions"`
	Totals   models.SessionTotals   `json:"totals"`
}

// StudyService drives the single active deck
type StudyService interface {
	ListDecks(ctx context.Context) []baseline.Entry
	Open(ctx context.Context, categoryID string) (*DeckState, error)
	State(ctx context.Context) (*DeckState, error)
	SetView(ctx context.Context, filter models.Filter, query string) (*DeckState, error)
	SetUseSRS(ctx context.Context, enabled bool) (*DeckState, error)
	Rate(ctx context.Context, cardID int, rating models.Difficulty) (*DeckState, error)
	ToggleFavorite(ctx context.Context, cardID int) (*DeckState, error)
	Advance(ctx context.Context, dir deck.Direction) (*DeckState, error)
	StartHardReview(ctx context.Context) (*DeckState, error)
	DismissPrompt(ctx context.Context) (*DeckState, error)
	ExitReview(ctx context.Context) (*DeckState, error)
	ResetDeck(ctx context.Context) (*DeckState, error)
	Sessions(ctx context.Context) (*SessionLog, error)
	SessionTotals(ctx context.Context) (models.SessionTotals, error)
	ResetAllData(ctx context.Context) error
	Close(ctx context.Context)
}

type studyService struct {
	catalog  *baseline.Catalog
	cards    repository.CardStateRepository
	sessions repository.SessionLogRepository
	clock    clock.Clock

	mu     sync.Mutex
	useSRS bool
	active *deck.Controller
}

// NewStudyService creates a StudyService with no deck open.
func NewStudyService(
	catalog *baseline.Catalog,
	cards repository.CardStateRepository,
	sessions repository.SessionLogRepository,
	clk clock.Clock,
	useSRS bool,
) StudyService {
	if clk == nil {
		clk = clock.System{}
	}
	return &studyService{
		catalog:  catalog,
		cards:    cards,
		sessions: sessions,
		clock:    clk,
		useSRS:   useSRS,
	}
}

func (s *studyService) ListDecks(ctx context.Context) []baseline.Entry {
	return s.catalog.List()
}

func (s *studyService) Open(ctx context.Context, categoryID string) (*DeckState, error) {
	log := logger.FromContext(ctx).WithPrefix("study")
	log.Debug("opening deck: category=%s", categoryID)

	base, ok := s.catalog.Cards(categoryID)
	if !ok {
		return nil, errors.NewNotFoundError("deck", categoryID)
	}

	cards, err := s.cards.Load(ctx, categoryID, base)
	if err != nil {
		log.Warn("failed to load stored state for %s, using baseline: %v", categoryID, err)
		cards = fresh(base)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.active.Close(ctx)
	}
	s.active = s.newController(models.Deck{CategoryID: categoryID, Cards: cards})
	log.Info("opened deck %s with %d cards", categoryID, len(cards))
	return s.stateLocked(), nil
}

func (s *studyService) newController(d models.Deck) *deck.Controller {
	return deck.New(d, deck.Options{
		Store:    s.cards,
		Sessions: s.sessions,
		Clock:    s.clock,
		UseSRS:   s.useSRS,
	})
}

// fresh returns the baseline as new cards.
func fresh(base []models.Card) []models.Card {
	cards := make([]models.Card, len(base))
	for i, c := range base {
		cards[i] = models.Card{ID: i + 1, Front: c.Front, Back: c.Back}
	}
	return cards
}

// withActive runs fn on the active deck under the lock and returns the
// resulting state.
func (s *studyService) withActive(fn func(c *deck.Controller) error) (*DeckState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, errors.NewNoActiveDeckError()
	}
	if err := fn(s.active); err != nil {
		return nil, err
	}
	return s.stateLocked(), nil
}

func (s *studyService) stateLocked() *DeckState {
	c := s.active
	filter, query := c.ViewSettings()
	st := &DeckState{
		CategoryID: c.CategoryID(),
		State:      c.State(),
		Filter:     filter,
		Query:      query,
		UseSRS:     c.UseSRS(),
		Cursor:     c.Cursor(),
		View:       c.View(),
		HardCards:  len(c.HardCards()),
		Stats:      c.Stats(),
	}
	if card, ok := c.Current(); ok {
		st.Current = &card
	}
	if board, ok := c.Scoreboard(); ok && c.State() == deck.StateScoreboard {
		st.Scoreboard = &board
	}
	return st
}

func (s *studyService) State(ctx context.Context) (*DeckState, error) {
	return s.withActive(func(*deck.Controller) error { return nil })
}

func (s *studyService) SetView(ctx context.Context, filter models.Filter, query string) (*DeckState, error) {
	return s.withActive(func(c *deck.Controller) error {
		c.SetView(ctx, filter, query)
		return nil
	})
}

func (s *studyService) SetUseSRS(ctx context.Context, enabled bool) (*DeckState, error) {
	s.mu.Lock()
	s.useSRS = enabled
	s.mu.Unlock()

	return s.withActive(func(c *deck.Controller) error {
		c.SetUseSRS(ctx, enabled)
		return nil
	})
}

func (s *studyService) Rate(ctx context.Context, cardID int, rating models.Difficulty) (*DeckState, error) {
	log := logger.FromContext(ctx).WithPrefix("study")
	if !rating.Valid() {
		return nil, errors.NewValidationError("rating", "must be one of easy, medium, hard")
	}
	return s.withActive(func(c *deck.Controller) error {
		if !hasCard(c, cardID) {
			return errors.NewNotFoundError("card", cardID)
		}
		log.Debug("rating card %d as %s in %s", cardID, rating, c.State())
		c.Rate(ctx, cardID, rating)
		return nil
	})
}

func (s *studyService) ToggleFavorite(ctx context.Context, cardID int) (*DeckState, error) {
	return s.withActive(func(c *deck.Controller) error {
		if !hasCard(c, cardID) {
			return errors.NewNotFoundError("card", cardID)
		}
		c.ToggleFavorite(ctx, cardID)
		return nil
	})
}

func hasCard(c *deck.Controller, id int) bool {
	for _, card := range c.Snapshot().Cards {
		if card.ID == id {
			return true
		}
	}
	return false
}

func (s *studyService) Advance(ctx context.Context, dir deck.Direction) (*DeckState, error) {
	return s.withActive(func(c *deck.Controller) error {
		c.Advance(ctx, dir)
		return nil
	})
}

func (s *studyService) StartHardReview(ctx context.Context) (*DeckState, error) {
	return s.withActive(func(c *deck.Controller) error {
		return transitionError(c.StartHardReview(ctx), "hard review can only start from the review prompt or the scoreboard")
	})
}

func (s *studyService) DismissPrompt(ctx context.Context) (*DeckState, error) {
	return s.withActive(func(c *deck.Controller) error {
		return transitionError(c.DismissPrompt(), "there is no review prompt to dismiss")
	})
}

func (s *studyService) ExitReview(ctx context.Context) (*DeckState, error) {
	return s.withActive(func(c *deck.Controller) error {
		return transitionError(c.ExitReview(ctx), "not in a hard review or on the scoreboard")
	})
}

func transitionError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, deck.ErrInvalidTransition) {
		return errors.NewConflictError(msg)
	}
	return errors.NewInternalError(err)
}

func (s *studyService) ResetDeck(ctx context.Context) (*DeckState, error) {
	return s.withActive(func(c *deck.Controller) error {
		base, ok := s.catalog.Cards(c.CategoryID())
		if !ok {
			return errors.NewNotFoundError("deck", c.CategoryID())
		}
		c.ResetDeck(ctx, base)
		return nil
	})
}

func (s *studyService) Sessions(ctx context.Context) (*SessionLog, error) {
	log := logger.FromContext(ctx).WithPrefix("study")

	sessions, err := s.sessions.LoadAll(ctx)
	if err != nil {
		log.Error("failed to load session log: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if sessions == nil {
		sessions = []models.ReviewSession{}
	}
	return &SessionLog{Sessions: sessions, Totals: models.SumSessions(sessions)}, nil
}

func (s *studyService) SessionTotals(ctx context.Context) (models.SessionTotals, error) {
	l, err := s.Sessions(ctx)
	if err != nil {
		return models.SessionTotals{}, err
	}
	return l.Totals, nil
}

func (s *studyService) ResetAllData(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("study")
	log.Info("resetting all data")

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cards.Clear(ctx); err != nil {
		log.Error("failed to clear card state: %v", err)
		return errors.NewInternalError(err)
	}
	if err := s.sessions.Clear(ctx); err != nil {
		log.Error("failed to clear session log: %v", err)
		return errors.NewInternalError(err)
	}

	if s.active == nil {
		return nil
	}
	id := s.active.CategoryID()
	base, ok := s.catalog.Cards(id)
	if !ok {
		s.active = nil
		return nil
	}
	s.active = s.newController(models.Deck{CategoryID: id, Cards: fresh(base)})
	return nil
}

func (s *studyService) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.active.Close(ctx)
		s.active = nil
	}
}
