package flashcard

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vytor/flashdeck/internal/models"
)

const (
	// InitialEaseFactor is assigned on a card's first review.
	InitialEaseFactor = 2.5
	// MinEaseFactor keeps repeated "hard" ratings from collapsing intervals.
	MinEaseFactor = 1.3

	// HardIntervalDays is the interval after any "hard" rating.
	HardIntervalDays = 1
	// FirstIntervalDays and SecondIntervalDays seed the first two
	// consecutive "easy" reviews before multiplicative growth starts.
	FirstIntervalDays  = 1
	SecondIntervalDays = 6
	// MediumMultiplier grows the interval on a "medium" rating.
	MediumMultiplier = 1.2

	day = 24 * time.Hour
)

// quality maps a rating onto the SM-2 response scale used by the ease formula.
func quality(rating models.Difficulty) int {
	switch rating {
	case models.DifficultyEasy:
		return 3
	case models.DifficultyMedium:
		return 2
	case models.DifficultyHard:
		return 1
	}
	panic(fmt.Sprintf("flashcard: invalid rating %q", rating))
}

// CalculateNextReview returns card rescheduled after being rated at now,
// using an SM-2 variant. The input card is left untouched.
func CalculateNextReview(card models.Card, rating models.Difficulty, now time.Time) models.Card {
	q := quality(rating)

	prev := models.Schedule{EaseFactor: InitialEaseFactor}
	if card.Schedule != nil {
		prev = *card.Schedule
	}

	ef := prev.EaseFactor + 0.1 - float64(3-q)*(0.08+float64(3-q)*0.02)
	if ef < MinEaseFactor {
		ef = MinEaseFactor
	}

	reps := prev.Repetitions + 1
	var interval int
	switch rating {
	case models.DifficultyHard:
		reps = 0
		interval = HardIntervalDays
	case models.DifficultyMedium:
		interval = prev.IntervalDays + 1
		if grown := int(math.Round(float64(prev.IntervalDays) * MediumMultiplier)); grown > interval {
			interval = grown
		}
	case models.DifficultyEasy:
		switch reps {
		case 1:
			interval = FirstIntervalDays
		case 2:
			interval = SecondIntervalDays
		default:
			interval = int(math.Round(float64(prev.IntervalDays) * ef))
		}
		if interval < 1 {
			interval = 1
		}
	}

	out := card.Clone()
	out.Difficulty = rating
	out.Schedule = &models.Schedule{
		DueDate:      now.Add(time.Duration(interval) * day),
		IntervalDays: interval,
		EaseFactor:   ef,
		Repetitions:  reps,
		LastReviewed: now,
	}
	return out
}

// RateWithoutSchedule records rating on a copy of card without touching its
// schedule. Used when spaced repetition is switched off.
func RateWithoutSchedule(card models.Card, rating models.Difficulty) models.Card {
	quality(rating)
	out := card.Clone()
	out.Difficulty = rating
	return out
}

// GetDueCards returns the cards due at now, in input order. Cards that were
// never scheduled are always included.
func GetDueCards(cards []models.Card, now time.Time) []models.Card {
	due := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		if c.IsDue(now) {
			due = append(due, c)
		}
	}
	return due
}

// SortCardsByDueDate returns a copy of cards ordered by ascending due date.
// New cards come first and ties keep their deck order.
func SortCardsByDueDate(cards []models.Card) []models.Card {
	sorted := make([]models.Card, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Schedule, sorted[j].Schedule
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		}
		return a.DueDate.Before(b.DueDate)
	})
	return sorted
}
