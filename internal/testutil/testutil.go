package testutil

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/vytor/flashdeck/internal/db"
	"github.com/vytor/flashdeck/internal/logger"
	"github.com/vytor/flashdeck/internal/models"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// It is pinned to a single connection because every new connection to
// :memory: would see an empty database.
func NewTestDB(t *testing.T) *sql.DB {
	sqlDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(context.Background(), sqlDB, logger.Discard()), "failed to apply migrations")
	return sqlDB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// Baseline builds an unscheduled deck of n cards with predictable text.
func Baseline(n int) []models.Card {
	cards := make([]models.Card, n)
	for i := range cards {
		cards[i] = models.Card{
			ID:    i + 1,
			Front: "front " + string(rune('A'+i)),
			Back:  "back " + string(rune('A'+i)),
		}
	}
	return cards
}
