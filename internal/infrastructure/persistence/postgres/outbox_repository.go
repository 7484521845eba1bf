package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/events"
)

// OutboxRepository implements the transactional outbox on the write store.
//
// Save runs inside the handler's unit of work, so the outbox row commits
// atomically with the business change. The relay reads back full envelopes
// and the payload column holds the envelope bytes verbatim, so what was
// committed is exactly what gets published.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

var _ ports.OutboxRepository = (*OutboxRepository)(nil)

// NewOutboxRepository creates an outbox repository over the write pool.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Save appends an envelope as an unprocessed row.
func (r *OutboxRepository) Save(ctx context.Context, env events.Envelope) error {
	payload, err := env.Encode()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO outbox_events
			(id, aggregate_type, aggregate_id, event_type, payload, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = conn(ctx, r.pool).Exec(ctx, query,
		env.EventID, env.AggregateType, env.AggregateID,
		env.EventType, payload, env.Version, env.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// FindUnprocessed returns up to limit unprocessed envelopes in commit order.
// The (created_at, id) order keeps events of one aggregate in the order they
// were written.
func (r *OutboxRepository) FindUnprocessed(ctx context.Context, limit int) ([]events.Envelope, error) {
	query := `
		SELECT payload
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $1`

	rows, err := conn(ctx, r.pool).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var envelopes []events.Envelope
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		env, err := events.DecodeEnvelope(payload)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, env)
	}
	return envelopes, rows.Err()
}

// MarkProcessed claims a row. The processed_at IS NULL condition makes the
// claim exclusive across concurrent relays.
func (r *OutboxRepository) MarkProcessed(ctx context.Context, eventID uuid.UUID) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE outbox_events SET processed_at = now() WHERE id = $1 AND processed_at IS NULL`,
		eventID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark outbox event processed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CleanupProcessed prunes processed rows older than the retention window.
func (r *OutboxRepository) CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM outbox_events WHERE processed_at IS NOT NULL AND processed_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up outbox: %w", err)
	}
	return tag.RowsAffected(), nil
}
