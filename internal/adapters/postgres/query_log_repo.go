package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
)

// MaxRecentQueries caps Recent.
const MaxRecentQueries = 500

// QueryLogRepo implements ports.QueryLogRepository.
type QueryLogRepo struct {
	db *DB
}

func NewQueryLogRepo(db *DB) *QueryLogRepo {
	return &QueryLogRepo{db: db}
}

func (r *QueryLogRepo) Insert(ctx context.Context, e *domain.QueryLogEntry) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO query_log (token, endpoint, outcome, area_sqm, message, duration_ms, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, int64(e.Token), e.Endpoint, string(e.Outcome), e.AreaSqm, e.Message, e.DurationMs, e.ResolvedAt).Scan(&e.ID)
}

func (r *QueryLogRepo) Recent(ctx context.Context, limit int) ([]domain.QueryLogEntry, error) {
	if limit <= 0 || limit > MaxRecentQueries {
		limit = MaxRecentQueries
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, token, endpoint, outcome, area_sqm, message, duration_ms, resolved_at
		FROM query_log
		ORDER BY resolved_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.QueryLogEntry, error) {
		var (
			e       domain.QueryLogEntry
			token   int64
			outcome string
		)
		err := row.Scan(&e.ID, &token, &e.Endpoint, &outcome, &e.AreaSqm, &e.Message, &e.DurationMs, &e.ResolvedAt)
		e.Token = uint64(token)
		e.Outcome = domain.Phase(outcome)
		return e, err
	})
}
