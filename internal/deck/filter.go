package deck

import (
	"strings"
	"time"

	"github.com/vytor/flashdeck/internal/flashcard"
	"github.com/vytor/flashdeck/internal/models"
)

// FilterCards derives a browsing view from cards. The due filter needs
// spaced repetition enabled and yields due cards ordered by due date.
// A non-empty query keeps cards whose front or back contains it, ignoring case.
func FilterCards(cards []models.Card, filter models.Filter, query string, useSRS bool, now time.Time) []models.Card {
	var view []models.Card
	switch filter {
	case models.FilterDue:
		if !useSRS {
			return []models.Card{}
		}
		view = flashcard.SortCardsByDueDate(flashcard.GetDueCards(cards, now))
	default:
		view = make([]models.Card, 0, len(cards))
		for _, c := range cards {
			if matchesFilter(c, filter) {
				view = append(view, c)
			}
		}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return view
	}
	out := view[:0]
	for _, c := range view {
		if strings.Contains(strings.ToLower(c.Front), q) || strings.Contains(strings.ToLower(c.Back), q) {
			out = append(out, c)
		}
	}
	return out
}

func matchesFilter(c models.Card, filter models.Filter) bool {
	switch filter {
	case models.FilterFavorites:
		return c.Favorite
	case models.FilterEasy:
		return c.Difficulty == models.DifficultyEasy
	case models.FilterMedium:
		return c.Difficulty == models.DifficultyMedium
	case models.FilterHard:
		return c.Difficulty == models.DifficultyHard
	}
	return true
}
