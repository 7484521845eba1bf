package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// HistoryRepository stores post-operation balance snapshots in the read
// store. Append-only; historical balance queries read the latest snapshot at
// or before a point in time.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

var _ ports.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a repository over the read pool.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Append stores one snapshot.
func (r *HistoryRepository) Append(ctx context.Context, entry ports.HistoryEntry) error {
	query := `
		INSERT INTO transaction_history (id, wallet_id, balance, transaction_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		entry.ID, entry.WalletID, entry.Balance.String(),
		entry.TransactionID, entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append balance history: %w", err)
	}
	return nil
}

// LatestBefore returns the newest snapshot with recorded_at <= asOf, or
// (nil, nil) when the wallet has no snapshot that old.
func (r *HistoryRepository) LatestBefore(ctx context.Context, walletID uuid.UUID, asOf time.Time) (*ports.HistoryEntry, error) {
	query := `
		SELECT id, wallet_id, balance::text, transaction_id, recorded_at
		FROM transaction_history
		WHERE wallet_id = $1 AND recorded_at <= $2
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`

	var (
		entry      ports.HistoryEntry
		balanceStr string
	)
	err := conn(ctx, r.pool).QueryRow(ctx, query, walletID, asOf).Scan(
		&entry.ID, &entry.WalletID, &balanceStr, &entry.TransactionID, &entry.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}

	balance, err := valueobjects.ParseAmount(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance in history row %s: %w", entry.ID, err)
	}
	entry.Balance = balance
	return &entry, nil
}
