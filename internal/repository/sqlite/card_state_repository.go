package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/flashdeck/internal/logger"
	"github.com/vytor/flashdeck/internal/models"
	"github.com/vytor/flashdeck/internal/repository"
)

// storedCard is the durable part of a card. Text is not stored because the
// baseline deck is the source of truth for it.
type storedCard struct {
	ID         int               `json:"id"`
	Favorite   bool              `json:"favorite"`
	Difficulty models.Difficulty `json:"difficulty,omitempty"`
	Schedule   *models.Schedule  `json:"schedule,omitempty"`
}

type cardStateRepository struct {
	db *sql.DB
}

// NewCardStateRepository creates a CardStateRepository backed by the
// card_states table.
func NewCardStateRepository(db *sql.DB) repository.CardStateRepository {
	return &cardStateRepository{db: db}
}

func (r *cardStateRepository) Load(ctx context.Context, categoryID string, baseline []models.Card) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_store")
	log.Debug("loading card state: category=%s, baseline=%d", categoryID, len(baseline))

	query, args, err := sqlBuilder.Select("payload").
		From("card_states").
		Where(squirrel.Eq{"category_id": categoryID}).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	var payload string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("no stored state for category=%s, using baseline", categoryID)
		return fresh(baseline), nil
	}
	if err != nil {
		log.Error("failed to load card state: %v", err)
		return nil, err
	}

	var stored []storedCard
	if err := json.Unmarshal([]byte(payload), &stored); err != nil {
		log.Warn("malformed card state for category=%s, falling back to baseline: %v", categoryID, err)
		return fresh(baseline), nil
	}

	return merge(log, baseline, stored), nil
}

func (r *cardStateRepository) Save(ctx context.Context, categoryID string, cards []models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_store")
	log.Debug("saving card state: category=%s, cards=%d", categoryID, len(cards))

	stored := make([]storedCard, len(cards))
	for i, c := range cards {
		stored[i] = storedCard{ID: c.ID, Favorite: c.Favorite, Difficulty: c.Difficulty, Schedule: c.Schedule}
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		log.Error("failed to encode card state: %v", err)
		return err
	}

	_, err = exec(ctx, r.db, log, sqlBuilder.Insert("card_states").
		Columns("category_id", "payload", "updated_at").
		Values(categoryID, string(payload), time.Now().UTC()).
		Suffix("ON CONFLICT(category_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at"))
	return err
}

func (r *cardStateRepository) Clear(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("card_store")
	log.Info("clearing all stored card state")

	_, err := exec(ctx, r.db, log, sqlBuilder.Delete("card_states"))
	return err
}

// fresh returns the baseline with ids assigned by position and no schedule.
func fresh(baseline []models.Card) []models.Card {
	cards := make([]models.Card, len(baseline))
	for i, c := range baseline {
		c.ID = i + 1
		c.Schedule = nil
		cards[i] = c
	}
	return cards
}

// merge lays stored durable fields over the baseline, matching on id.
func merge(log *logger.Logger, baseline []models.Card, stored []storedCard) []models.Card {
	byID := make(map[int]storedCard, len(stored))
	for _, s := range stored {
		byID[s.ID] = s
	}

	cards := fresh(baseline)
	for i := range cards {
		s, ok := byID[cards[i].ID]
		if !ok {
			continue
		}
		cards[i].Favorite = s.Favorite
		cards[i].Difficulty = models.DifficultyNone
		if s.Difficulty.Valid() {
			cards[i].Difficulty = s.Difficulty
		} else if s.Difficulty != models.DifficultyNone {
			log.Warn("dropping unknown difficulty %q for card %d", s.Difficulty, s.ID)
		}
		if s.Schedule == nil {
			continue
		}
		if !validSchedule(*s.Schedule) {
			log.Warn("dropping incomplete schedule for card %d", s.ID)
			continue
		}
		sched := *s.Schedule
		cards[i].Schedule = &sched
	}
	return cards
}

func validSchedule(s models.Schedule) bool {
	return !s.DueDate.IsZero() &&
		!s.LastReviewed.IsZero() &&
		s.EaseFactor > 0 &&
		s.IntervalDays >= 0 &&
		s.Repetitions >= 0
}
