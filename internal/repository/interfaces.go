package repository

import (
	"context"

	"github.com/vytor/flashdeck/internal/models"
)

// CardStateRepository persists the per-card study state of each deck.
type CardStateRepository interface {
	// Load merges stored state for categoryID onto baseline. Baseline text
	// always wins; stored favorite, difficulty and schedule win when present.
	// Missing or unreadable state yields the baseline cards unscheduled.
	Load(ctx context.Context, categoryID string, baseline []models.Card) ([]models.Card, error)
	Save(ctx context.Context, categoryID string, cards []models.Card) error
	Clear(ctx context.Context) error
}

// SessionLogRepository is the append-only log of finished review sessions.
type SessionLogRepository interface {
	Append(ctx context.Context, session models.ReviewSession) (models.ReviewSession, error)
	LoadAll(ctx context.Context) ([]models.ReviewSession, error)
	Clear(ctx context.Context) error
}
