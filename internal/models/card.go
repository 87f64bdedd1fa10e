package models

import "time"

// Card is a single unit of study inside a deck.
type Card struct {
	ID         int        `json:"id"`
	Front      string     `json:"front"`
	Back       string     `json:"back"`
	Favorite   bool       `json:"favorite"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Schedule   *Schedule  `json:"schedule,omitempty"`
}

// Schedule is the spaced-repetition state of a card. A card either has all
// of these fields or none of them, so they live behind a single pointer.
type Schedule struct {
	DueDate      time.Time `json:"due_date"`
	IntervalDays int       `json:"interval_days"`
	EaseFactor   float64   `json:"ease_factor"`
	Repetitions  int       `json:"repetitions"`
	LastReviewed time.Time `json:"last_reviewed"`
}

// IsNew reports whether the card has never been scheduled.
func (c Card) IsNew() bool {
	return c.Schedule == nil
}

// IsDue reports whether the card should be presented at now.
// Unscheduled cards are always due.
func (c Card) IsDue(now time.Time) bool {
	if c.Schedule == nil {
		return true
	}
	return !c.Schedule.DueDate.After(now)
}

// Clone returns a copy that shares no memory with c.
func (c Card) Clone() Card {
	if c.Schedule != nil {
		s := *c.Schedule
		c.Schedule = &s
	}
	return c
}

// CloneCards deep-copies a slice of cards.
func CloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}

// Deck is the ordered card sequence of one category.
type Deck struct {
	CategoryID string `json:"category_id"`
	Cards      []Card `json:"cards"`
}

// Clone deep-copies the deck.
func (d Deck) Clone() Deck {
	return Deck{CategoryID: d.CategoryID, Cards: CloneCards(d.Cards)}
}
