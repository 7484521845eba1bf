package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/entities"
)

// ReadWalletRepository maintains the projected wallet rows in the read store.
// Only the projector writes here; queries read.
type ReadWalletRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ReadWalletRepository = (*ReadWalletRepository)(nil)

// NewReadWalletRepository creates a repository over the read pool.
func NewReadWalletRepository(pool *pgxpool.Pool) *ReadWalletRepository {
	return &ReadWalletRepository{pool: pool}
}

// Upsert writes the full projected row. The projector applies events in
// per-aggregate order, so a plain replace is safe.
func (r *ReadWalletRepository) Upsert(ctx context.Context, wallet *entities.Wallet) error {
	query := `
		INSERT INTO wallets (id, user_id, balance, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			balance = EXCLUDED.balance,
			status = EXCLUDED.status,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		wallet.ID(), wallet.UserID(), wallet.Balance().String(),
		string(wallet.Status()), wallet.Version(),
		wallet.CreatedAt(), wallet.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert projected wallet: %w", err)
	}
	return nil
}

// FindByID loads a projected wallet.
func (r *ReadWalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	query := `
		SELECT id, user_id, balance::text, status, version, created_at, updated_at
		FROM wallets
		WHERE id = $1`

	return scanWallet(conn(ctx, r.pool).QueryRow(ctx, query, id))
}
