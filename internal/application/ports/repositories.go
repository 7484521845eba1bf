// Package ports defines the interfaces the application layer depends on.
// The infrastructure layer provides the implementations.
//
// Pattern: Repository Pattern + Ports & Adapters (Hexagonal Architecture)
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/events"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// WalletRepository is the write-store contract for wallet rows.
//
// Wallet is an aggregate root: Save persists the whole aggregate and is the
// only admissible mutator of a wallet row.
type WalletRepository interface {
	// Save persists the wallet with an optimistic version check.
	// For version 0 it inserts; otherwise it conditionally updates and
	// returns a ConcurrencyError when the row changed underneath.
	Save(ctx context.Context, wallet *entities.Wallet) error

	// FindByID loads a wallet. Returns ErrWalletNotFound if absent.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)

	// FindByUserID returns all wallets belonging to a user.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.Wallet, error)

	// ExistsByUserID reports whether the user already owns a wallet.
	// Used when the single-wallet-per-user flag is on.
	ExistsByUserID(ctx context.Context, userID uuid.UUID) (bool, error)
}

// TransactionRepository is the write-store contract for transaction records.
type TransactionRepository interface {
	// Save persists a transaction row.
	Save(ctx context.Context, tx *entities.Transaction) error

	// FindByID loads a transaction. Returns ErrTransactionNotFound if absent.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)

	// FindByReference finds a transaction by its idempotency key.
	// Returns (nil, nil) when no row exists: absence is the common case on
	// the hot path, not an error.
	FindByReference(ctx context.Context, walletID uuid.UUID, referenceID string) (*entities.Transaction, error)

	// FindByWalletID lists a wallet's transactions, newest first.
	FindByWalletID(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.Transaction, error)
}

// OutboxRepository is the transactional outbox contract (write store).
type OutboxRepository interface {
	// Save appends an envelope as an unprocessed outbox row.
	// Must run inside the same transaction as the business change.
	Save(ctx context.Context, env events.Envelope) error

	// FindUnprocessed returns up to limit unprocessed rows ordered by
	// created_at then id, preserving per-aggregate commit order.
	FindUnprocessed(ctx context.Context, limit int) ([]events.Envelope, error)

	// MarkProcessed claims a row by setting processed_at where it is still
	// null. Returns false when another relay already claimed it; the
	// conditional update is the multi-publisher lease.
	MarkProcessed(ctx context.Context, eventID uuid.UUID) (bool, error)

	// CleanupProcessed deletes processed rows older than the cutoff and
	// returns the number of rows removed.
	CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ReadWalletRepository is the read-store contract for projected wallet rows.
type ReadWalletRepository interface {
	// Upsert writes the projected wallet row (insert or full replace).
	Upsert(ctx context.Context, wallet *entities.Wallet) error

	// FindByID loads a projected wallet. Returns ErrWalletNotFound if the
	// projection has not caught up yet.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
}

// HistoryEntry is one post-operation balance snapshot on the read side.
type HistoryEntry struct {
	ID            uuid.UUID
	WalletID      uuid.UUID
	Balance       valueobjects.Amount
	TransactionID uuid.UUID
	RecordedAt    time.Time
}

// HistoryRepository is the read-store contract for balance history.
type HistoryRepository interface {
	// Append stores one history snapshot. Append-only.
	Append(ctx context.Context, entry HistoryEntry) error

	// LatestBefore returns the newest snapshot with RecordedAt <= asOf.
	// Returns (nil, nil) when the wallet has no snapshot that old.
	LatestBefore(ctx context.Context, walletID uuid.UUID, asOf time.Time) (*HistoryEntry, error)
}

// ProcessedEventRepository deduplicates events on the read side.
// At-least-once delivery means the projector sees some events twice.
type ProcessedEventRepository interface {
	// MarkProcessed records the event id. Returns false when the id was
	// already recorded, in which case the caller must skip the event.
	MarkProcessed(ctx context.Context, eventID uuid.UUID) (bool, error)
}
