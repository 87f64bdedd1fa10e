package sqlite

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/flashdeck/internal/logger"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// exec builds q and runs it, logging build and execution failures.
func exec(ctx context.Context, db *sql.DB, log *logger.Logger, q squirrel.Sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("query failed: %v", err)
		return nil, err
	}
	return res, nil
}
