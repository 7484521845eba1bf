package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/walletd/internal/application/ports"
)

// ProcessedEventRepository is the read-side dedup registry. The insert runs
// inside the projector's unit of work, so "applied" and "recorded" commit
// together.
type ProcessedEventRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ProcessedEventRepository = (*ProcessedEventRepository)(nil)

// NewProcessedEventRepository creates a repository over the read pool.
func NewProcessedEventRepository(pool *pgxpool.Pool) *ProcessedEventRepository {
	return &ProcessedEventRepository{pool: pool}
}

// MarkProcessed records the event id. ON CONFLICT DO NOTHING makes the
// second delivery observable as zero rows affected.
func (r *ProcessedEventRepository) MarkProcessed(ctx context.Context, eventID uuid.UUID) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO processed_events (event_id, processed_at) VALUES ($1, now()) ON CONFLICT (event_id) DO NOTHING`,
		eventID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record processed event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
