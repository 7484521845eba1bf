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
	"github.com/velopay/walletd/internal/domain/entities"
	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// WalletRepository persists wallet aggregates in the write store.
//
// Amounts cross the driver boundary as strings: NUMERIC(20,4) is selected
// with ::text and parameters are bound as decimal strings, so no float ever
// touches a balance.
type WalletRepository struct {
	pool *pgxpool.Pool
}

var _ ports.WalletRepository = (*WalletRepository)(nil)

// NewWalletRepository creates a wallet repository over the write pool.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// Save inserts a version-0 wallet or conditionally updates an existing one.
//
// The entity bumped its version in memory before Save, so the update matches
// against Version()-1. Zero rows affected means another writer committed
// first; the caller gets a ConcurrencyError and the resilience wrapper
// reloads and retries.
func (r *WalletRepository) Save(ctx context.Context, wallet *entities.Wallet) error {
	q := conn(ctx, r.pool)

	if wallet.Version() == 0 {
		query := `
			INSERT INTO wallets (id, user_id, balance, status, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`

		_, err := q.Exec(ctx, query,
			wallet.ID(), wallet.UserID(), wallet.Balance().String(),
			string(wallet.Status()), wallet.Version(),
			wallet.CreatedAt(), wallet.UpdatedAt(),
		)
		if err != nil {
			if isUniqueViolation(err, "wallets_pkey") {
				return domainErrors.ErrWalletAlreadyExists
			}
			return fmt.Errorf("failed to insert wallet: %w", err)
		}
		return nil
	}

	query := `
		UPDATE wallets
		SET balance = $1, status = $2, version = $3, updated_at = $4
		WHERE id = $5 AND version = $6`

	tag, err := q.Exec(ctx, query,
		wallet.Balance().String(), string(wallet.Status()),
		wallet.Version(), wallet.UpdatedAt(),
		wallet.ID(), wallet.Version()-1,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.NewConcurrencyError("wallet", wallet.ID().String(),
			fmt.Sprintf("version %d no longer current", wallet.Version()-1))
	}
	return nil
}

// FindByID loads a wallet by id.
func (r *WalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	query := `
		SELECT id, user_id, balance::text, status, version, created_at, updated_at
		FROM wallets
		WHERE id = $1`

	return scanWallet(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

// FindByUserID returns all wallets owned by a user, oldest first.
func (r *WalletRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.Wallet, error) {
	query := `
		SELECT id, user_id, balance::text, status, version, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := conn(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets by user: %w", err)
	}
	defer rows.Close()

	var wallets []*entities.Wallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, wallet)
	}
	return wallets, rows.Err()
}

// ExistsByUserID reports whether the user owns at least one wallet.
func (r *WalletRepository) ExistsByUserID(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check wallet existence: %w", err)
	}
	return exists, nil
}

// scanWallet reconstructs a wallet entity from one row.
func scanWallet(row pgx.Row) (*entities.Wallet, error) {
	var (
		id, userID           uuid.UUID
		balanceStr, status   string
		version              int64
		createdAt, updatedAt time.Time
	)

	err := row.Scan(&id, &userID, &balanceStr, &status, &version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}

	balance, err := valueobjects.ParseAmount(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance for wallet %s: %w", id, err)
	}

	return entities.ReconstructWallet(id, userID, balance,
		entities.WalletStatus(status), version, createdAt, updatedAt), nil
}
