package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/vytor/flashdeck/internal/logger"
	"github.com/vytor/flashdeck/internal/models"
	"github.com/vytor/flashdeck/internal/repository"
)

type sessionLogRepository struct {
	db *sql.DB
}

// NewSessionLogRepository creates a SessionLogRepository backed by the
// review_sessions table.
func NewSessionLogRepository(db *sql.DB) repository.SessionLogRepository {
	return &sessionLogRepository{db: db}
}

func (r *sessionLogRepository) Append(ctx context.Context, s models.ReviewSession) (models.ReviewSession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_log")
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	log.Debug("appending review session: id=%s, kind=%s, easy=%d, medium=%d, hard=%d",
		s.ID, s.Kind, s.Easy, s.Medium, s.Hard)

	_, err := exec(ctx, r.db, log, sqlBuilder.Insert("review_sessions").
		Columns("id", "category_id", "kind", "easy", "medium", "hard", "started_at", "ended_at", "completed").
		Values(s.ID, s.CategoryID, string(s.Kind), s.Easy, s.Medium, s.Hard, s.StartedAt, s.EndedAt, s.Completed))
	if err != nil {
		return models.ReviewSession{}, err
	}
	return s, nil
}

func (r *sessionLogRepository) LoadAll(ctx context.Context) ([]models.ReviewSession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_log")

	query, args, err := sqlBuilder.
		Select("id", "category_id", "kind", "easy", "medium", "hard", "started_at", "ended_at", "completed").
		From("review_sessions").
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query review sessions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ReviewSession
	for rows.Next() {
		var s models.ReviewSession
		var kind string
		if err := rows.Scan(&s.ID, &s.CategoryID, &kind, &s.Easy, &s.Medium, &s.Hard, &s.StartedAt, &s.EndedAt, &s.Completed); err != nil {
			log.Error("failed to scan review session row: %v", err)
			return nil, err
		}
		s.Kind = models.SessionKind(kind)
		sessions = append(sessions, s)
	}
	log.Debug("loaded %d review sessions", len(sessions))
	return sessions, rows.Err()
}

func (r *sessionLogRepository) Clear(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("session_log")
	log.Info("clearing review session log")

	_, err := exec(ctx, r.db, log, sqlBuilder.Delete("review_sessions"))
	return err
}
