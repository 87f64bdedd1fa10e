// Package deck holds the in-memory state of the deck being studied and
// sequences the review flow around it.
package deck

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vytor/flashdeck/internal/clock"
	"github.com/vytor/flashdeck/internal/flashcard"
	"github.com/vytor/flashdeck/internal/logger"
	"github.com/vytor/flashdeck/internal/models"
	"github.com/vytor/flashdeck/internal/repository"
)

// State is the review-flow state of a Controller.
type State string

const (
	StateBrowsing     State = "browsing"
	StateReviewPrompt State = "review_prompt"
	StateHardReview   State = "hard_review"
	StateScoreboard   State = "scoreboard"
)

// Direction moves the cursor through the current view.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// ErrInvalidTransition is returned when a review-flow action is not allowed
// in the current state.
var ErrInvalidTransition = errors.New("deck: invalid state transition")

// Options configures a Controller.
type Options struct {
	Store    repository.CardStateRepository
	Sessions repository.SessionLogRepository
	Clock    clock.Clock
	UseSRS   bool
}

// Controller owns the cards of one deck. It is not safe for concurrent use.
type Controller struct {
	categoryID string
	cards      []models.Card

	store    repository.CardStateRepository
	sessions repository.SessionLogRepository
	clock    clock.Clock

	useSRS bool
	state  State
	filter models.Filter
	query  string
	cursor int

	// deck pass
	passStarted time.Time
	pass        *models.ReviewSession

	// hard review
	queue      []int
	review     *models.ReviewSession
	scoreboard *models.ReviewSession
}

// New creates a Controller in the Browsing state over a copy of d.
func New(d models.Deck, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	c := &Controller{
		categoryID: d.CategoryID,
		cards:      models.CloneCards(d.Cards),
		store:      opts.Store,
		sessions:   opts.Sessions,
		clock:      opts.Clock,
		useSRS:     opts.UseSRS,
		state:      StateBrowsing,
		filter:     models.FilterAll,
	}
	c.passStarted = c.clock.Now()
	return c
}

// CategoryID returns the id of the deck.
func (c *Controller) CategoryID() string { return c.categoryID }

// State returns the current review-flow state.
func (c *Controller) State() State { return c.state }

// UseSRS reports whether ratings reschedule cards.
func (c *Controller) UseSRS() bool { return c.useSRS }

// ViewSettings returns the active browsing filter and query.
func (c *Controller) ViewSettings() (models.Filter, string) { return c.filter, c.query }

// Cursor returns the position of the current card within View.
func (c *Controller) Cursor() int { return c.cursor }

func (c *Controller) logFor(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx).WithPrefix("deck").WithField("category", c.categoryID)
}

func (c *Controller) indexOf(id int) int {
	for i := range c.cards {
		if c.cards[i].ID == id {
			return i
		}
	}
	return -1
}

// ApplyRating records rating on the card with id and persists the deck.
// With spaced repetition off only the difficulty changes. Unknown ids are
// ignored. The cursor stays on the card it was on.
func (c *Controller) ApplyRating(ctx context.Context, id int, rating models.Difficulty) {
	anchor, ok := c.anchor()
	if c.apply(ctx, id, rating) {
		c.reanchor(anchor, ok)
	}
}

func (c *Controller) apply(ctx context.Context, id int, rating models.Difficulty) bool {
	log := c.logFor(ctx)
	i := c.indexOf(id)
	if i < 0 {
		log.Debug("ignoring rating for unknown card %d", id)
		return false
	}

	if c.useSRS {
		c.cards[i] = flashcard.CalculateNextReview(c.cards[i], rating, c.clock.Now())
		log.Debug("card %d rated %s: interval=%d, ease=%.2f, reps=%d",
			id, rating, c.cards[i].Schedule.IntervalDays, c.cards[i].Schedule.EaseFactor, c.cards[i].Schedule.Repetitions)
	} else {
		c.cards[i] = flashcard.RateWithoutSchedule(c.cards[i], rating)
		log.Debug("card %d rated %s without scheduling", id, rating)
	}
	c.persist(ctx)
	return true
}

// Rate is the rating action of the study flow. Besides ApplyRating it counts
// the rating in the active session and moves the flow along: while browsing
// the cursor advances past the rated card, during a hard review the card
// leaves the queue and an empty queue ends the pass. A rating while browsing
// an empty view is ignored.
func (c *Controller) Rate(ctx context.Context, id int, rating models.Difficulty) {
	switch c.state {
	case StateBrowsing:
		c.rateBrowsing(ctx, id, rating)
	case StateHardReview:
		c.rateHardReview(ctx, id, rating)
	default:
		c.apply(ctx, id, rating)
	}
}

func (c *Controller) rateBrowsing(ctx context.Context, id int, rating models.Difficulty) {
	anchor, ok := c.anchor()
	if !ok {
		c.logFor(ctx).Debug("ignoring rating for card %d: view is empty", id)
		return
	}
	if !c.apply(ctx, id, rating) {
		return
	}
	if c.pass == nil {
		c.pass = &models.ReviewSession{
			CategoryID: c.categoryID,
			Kind:       models.SessionDeckPass,
			StartedAt:  c.passStarted,
		}
	}
	c.pass.Count(rating)

	if anchor != id {
		c.reanchor(anchor, ok)
		return
	}
	view := c.View()
	if c.cursor < len(view) && view[c.cursor].ID == id {
		c.Advance(ctx, Forward)
		return
	}
	// The rated card dropped out of a filtered view and the next card took
	// its place.
	if c.cursor >= len(view) {
		c.cursor = 0
	}
}

// anchor returns the id of the card under the cursor.
func (c *Controller) anchor() (int, bool) {
	card, ok := c.Current()
	return card.ID, ok
}

// reanchor moves the cursor back onto the card with id after the browsing
// view changed. If the card left the view the cursor keeps its index, wrapping
// to the first card when it fell off the end.
func (c *Controller) reanchor(id int, ok bool) {
	if !ok || c.state != StateBrowsing {
		return
	}
	view := c.View()
	for i := range view {
		if view[i].ID == id {
			c.cursor = i
			return
		}
	}
	if c.cursor >= len(view) {
		c.cursor = 0
	}
}

func (c *Controller) rateHardReview(ctx context.Context, id int, rating models.Difficulty) {
	pos := -1
	for i, qid := range c.queue {
		if qid == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		c.apply(ctx, id, rating)
		return
	}
	if !c.apply(ctx, id, rating) {
		return
	}

	c.review.Count(rating)
	c.queue = append(c.queue[:pos], c.queue[pos+1:]...)
	if pos < c.cursor {
		c.cursor--
	}
	if len(c.queue) > 0 {
		if c.cursor >= len(c.queue) {
			c.cursor = 0
		}
		return
	}

	c.review.EndedAt = c.clock.Now()
	c.review.Completed = true
	c.appendSession(ctx, *c.review)
	c.scoreboard = c.review
	c.review = nil
	c.queue = nil
	c.cursor = 0
	c.state = StateScoreboard
	c.logFor(ctx).Info("hard review finished: easy=%d, medium=%d, hard=%d",
		c.scoreboard.Easy, c.scoreboard.Medium, c.scoreboard.Hard)
}

// ToggleFavorite flips the favorite flag of the card with id and persists
// the deck. Unknown ids are ignored. The cursor stays on the card it was on.
func (c *Controller) ToggleFavorite(ctx context.Context, id int) {
	i := c.indexOf(id)
	if i < 0 {
		c.logFor(ctx).Debug("ignoring favorite toggle for unknown card %d", id)
		return
	}
	anchor, ok := c.anchor()
	c.cards[i].Favorite = !c.cards[i].Favorite
	c.reanchor(anchor, ok)
	c.persist(ctx)
}

// FilteredView derives a view of the deck without changing any state.
func (c *Controller) FilteredView(filter models.Filter, query string, useSRS bool) []models.Card {
	return models.CloneCards(FilterCards(c.cards, filter, query, useSRS, c.clock.Now()))
}

// SetView changes the browsing filter and query and rewinds the cursor.
func (c *Controller) SetView(ctx context.Context, filter models.Filter, query string) {
	c.filter = filter
	c.query = strings.TrimSpace(query)
	c.cursor = 0
	c.logFor(ctx).Debug("view set: filter=%s, query=%q", filter, query)
}

// SetUseSRS switches spaced-repetition scheduling on or off. Difficulties
// and schedules already recorded are kept.
func (c *Controller) SetUseSRS(ctx context.Context, enabled bool) {
	c.useSRS = enabled
	c.cursor = 0
	c.logFor(ctx).Debug("spaced repetition enabled=%t", enabled)
}

// View returns the cards the cursor moves over: the hard-review queue during
// a hard review, the filtered deck otherwise.
func (c *Controller) View() []models.Card {
	if c.state == StateHardReview {
		view := make([]models.Card, 0, len(c.queue))
		for _, id := range c.queue {
			if i := c.indexOf(id); i >= 0 {
				view = append(view, c.cards[i].Clone())
			}
		}
		return view
	}
	return c.FilteredView(c.filter, c.query, c.useSRS)
}

// Current returns the card under the cursor. There is none outside of
// browsing and hard review, or when the view is empty.
func (c *Controller) Current() (models.Card, bool) {
	if c.state != StateBrowsing && c.state != StateHardReview {
		return models.Card{}, false
	}
	view := c.View()
	if c.cursor < 0 || c.cursor >= len(view) {
		return models.Card{}, false
	}
	return view[c.cursor], true
}

func (c *Controller) unfiltered() bool {
	return c.filter == models.FilterAll && c.query == ""
}

// Advance moves the cursor one card in dir, wrapping around the view.
// Wrapping forward off the end of the whole deck completes a pass; if any
// card is rated hard at that point the flow stops at the review prompt.
func (c *Controller) Advance(ctx context.Context, dir Direction) {
	if c.state != StateBrowsing && c.state != StateHardReview {
		return
	}
	n := len(c.View())
	if n == 0 {
		return
	}

	if dir == Backward {
		c.cursor--
		if c.cursor < 0 || c.cursor >= n {
			c.cursor = n - 1
		}
		return
	}

	if c.cursor+1 < n {
		c.cursor++
		return
	}
	if c.state == StateBrowsing && c.unfiltered() {
		c.finishPass(ctx, true)
		if hard := len(c.HardCards()); hard > 0 {
			c.state = StateReviewPrompt
			c.logFor(ctx).Info("pass complete with %d hard cards, prompting for review", hard)
			return
		}
	}
	c.cursor = 0
}

// finishPass flushes the deck-pass session if anything was rated and starts
// a new one.
func (c *Controller) finishPass(ctx context.Context, completed bool) {
	now := c.clock.Now()
	if c.pass != nil && c.pass.Total() > 0 {
		c.pass.EndedAt = now
		c.pass.Completed = completed
		c.appendSession(ctx, *c.pass)
	}
	c.pass = nil
	c.passStarted = now
}

// HardCards returns the cards currently rated hard, in deck order.
func (c *Controller) HardCards() []models.Card {
	var hard []models.Card
	for _, card := range c.cards {
		if card.Difficulty == models.DifficultyHard {
			hard = append(hard, card.Clone())
		}
	}
	return hard
}

// StartHardReview begins a hard-review pass over the cards rated hard right
// now. It is allowed from the review prompt and the scoreboard. With no hard
// cards the flow goes back to browsing.
func (c *Controller) StartHardReview(ctx context.Context) error {
	if c.state != StateReviewPrompt && c.state != StateScoreboard {
		return ErrInvalidTransition
	}

	hard := c.HardCards()
	c.cursor = 0
	if len(hard) == 0 {
		c.state = StateBrowsing
		c.logFor(ctx).Debug("no hard cards to review")
		return nil
	}

	c.queue = make([]int, len(hard))
	for i, card := range hard {
		c.queue[i] = card.ID
	}
	c.review = &models.ReviewSession{
		CategoryID: c.categoryID,
		Kind:       models.SessionHardReview,
		StartedAt:  c.clock.Now(),
	}
	c.state = StateHardReview
	c.logFor(ctx).Info("hard review started with %d cards", len(c.queue))
	return nil
}

// DismissPrompt declines the review prompt and returns to browsing from the
// first card.
func (c *Controller) DismissPrompt() error {
	if c.state != StateReviewPrompt {
		return ErrInvalidTransition
	}
	c.state = StateBrowsing
	c.cursor = 0
	return nil
}

// ExitReview leaves a hard review or the scoreboard for browsing. An
// abandoned review with at least one rating is still logged.
func (c *Controller) ExitReview(ctx context.Context) error {
	switch c.state {
	case StateHardReview:
		c.abandonReview(ctx)
	case StateScoreboard:
	default:
		return ErrInvalidTransition
	}
	c.state = StateBrowsing
	c.cursor = 0
	return nil
}

func (c *Controller) abandonReview(ctx context.Context) {
	if c.review != nil && c.review.Total() > 0 {
		c.review.EndedAt = c.clock.Now()
		c.review.Completed = false
		c.appendSession(ctx, *c.review)
	}
	c.review = nil
	c.queue = nil
}

// Scoreboard returns the result of the last completed hard review.
func (c *Controller) Scoreboard() (models.ReviewSession, bool) {
	if c.scoreboard == nil {
		return models.ReviewSession{}, false
	}
	return *c.scoreboard, true
}

// ResetDeck replaces the cards with baseline, all new, keeping favorites by
// position. Open sessions are closed and the flow returns to browsing.
func (c *Controller) ResetDeck(ctx context.Context, baseline []models.Card) {
	c.Close(ctx)

	cards := make([]models.Card, len(baseline))
	for i, b := range baseline {
		id := i + 1
		cards[i] = models.Card{ID: id, Front: b.Front, Back: b.Back}
		if j := c.indexOf(id); j >= 0 {
			cards[i].Favorite = c.cards[j].Favorite
		}
	}
	c.cards = cards
	c.state = StateBrowsing
	c.cursor = 0
	c.scoreboard = nil
	c.persist(ctx)
	c.logFor(ctx).Info("deck reset to %d new cards", len(cards))
}

// Close flushes any session that has ratings. The controller stays usable.
func (c *Controller) Close(ctx context.Context) {
	if c.state == StateHardReview {
		c.abandonReview(ctx)
	}
	c.finishPass(ctx, false)
}

// Stats counts the cards of the deck.
func (c *Controller) Stats() models.DeckStats {
	now := c.clock.Now()
	s := models.DeckStats{Total: len(c.cards)}
	for _, card := range c.cards {
		if card.IsNew() {
			s.New++
		}
		if c.useSRS && card.IsDue(now) {
			s.Due++
		}
		if card.Favorite {
			s.Favorites++
		}
		switch card.Difficulty {
		case models.DifficultyEasy:
			s.Easy++
		case models.DifficultyMedium:
			s.Medium++
		case models.DifficultyHard:
			s.Hard++
		}
	}
	return s
}

// Snapshot returns a deep copy of the deck.
func (c *Controller) Snapshot() models.Deck {
	return models.Deck{CategoryID: c.categoryID, Cards: models.CloneCards(c.cards)}
}

func (c *Controller) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, c.categoryID, c.cards); err != nil {
		c.logFor(ctx).Error("failed to persist deck, keeping in-memory state: %v", err)
	}
}

func (c *Controller) appendSession(ctx context.Context, s models.ReviewSession) {
	if c.sessions == nil {
		return
	}
	saved, err := c.sessions.Append(ctx, s)
	if err != nil {
		c.logFor(ctx).Error("failed to log %s session: %v", s.Kind, err)
		return
	}
	c.logFor(ctx).Debug("logged %s session %s: total=%d", saved.Kind, saved.ID, saved.Total())
}
