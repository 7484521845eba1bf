// Package ports - wallet snapshot cache contract.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WalletSnapshot is the canonical cached representation of a wallet.
// Field-tagged JSON keeps the encoding stable and endian-neutral; the cache
// never dictates the in-memory representation.
type WalletSnapshot struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Balance   string    `json:"balance"`
	Status    string    `json:"status"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WalletCache is a best-effort snapshot store keyed by wallet id.
// It is never the system of record: every method failure is survivable and
// a miss falls through to the read store.
type WalletCache interface {
	// Get returns the cached snapshot or (nil, nil) on a miss.
	Get(ctx context.Context, walletID uuid.UUID) (*WalletSnapshot, error)

	// Set stores the snapshot with the configured TTL.
	Set(ctx context.Context, snapshot WalletSnapshot) error

	// Invalidate drops the snapshot for a wallet.
	Invalidate(ctx context.Context, walletID uuid.UUID) error
}
