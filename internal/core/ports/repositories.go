package ports

import (
	"context"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
)

// QueryLogRepository persists resolved queries for auditing.
// It is never read back into interaction state.
type QueryLogRepository interface {
	Insert(ctx context.Context, entry *domain.QueryLogEntry) error
	Recent(ctx context.Context, limit int) ([]domain.QueryLogEntry, error)
}
