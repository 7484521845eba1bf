// Package entities - Wallet is the core entity for managing user balances.
// It enforces business rules around balance operations and status transitions.
package entities

import (
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// WalletStatus represents the operational status of a wallet.
type WalletStatus string

const (
	WalletStatusActive WalletStatus = "ACTIVE" // Normal operations allowed
	WalletStatusFrozen WalletStatus = "FROZEN" // Temporarily disabled by an admin
	WalletStatusClosed WalletStatus = "CLOSED" // Permanently closed, terminal
)

// IsValid checks if the wallet status is valid.
func (s WalletStatus) IsValid() bool {
	switch s {
	case WalletStatusActive, WalletStatusFrozen, WalletStatusClosed:
		return true
	default:
		return false
	}
}

// Wallet represents a user's monetary balance.
//
// Entity Pattern:
// - Has identity (ID)
// - Enforces invariants: balance never negative, version bumps by exactly one
//   per mutation, a wallet is never deleted
// - The command handlers are the only writers; concurrent writers are
//   serialized by the optimistic version check in the repository
type Wallet struct {
	id        uuid.UUID
	userID    uuid.UUID
	balance   valueobjects.Amount
	status    WalletStatus
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewWallet creates a new active wallet with a zero balance and version 0.
func NewWallet(userID uuid.UUID) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		id:        uuid.New(),
		userID:    userID,
		balance:   valueobjects.Zero(),
		status:    WalletStatusActive,
		version:   0,
		createdAt: now,
		updatedAt: now,
	}
}

// ReconstructWallet rebuilds a Wallet from persistence. Repository use only.
func ReconstructWallet(
	id, userID uuid.UUID,
	balance valueobjects.Amount,
	status WalletStatus,
	version int64,
	createdAt, updatedAt time.Time,
) *Wallet {
	return &Wallet{
		id:        id,
		userID:    userID,
		balance:   balance,
		status:    status,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (w *Wallet) ID() uuid.UUID                   { return w.id }
func (w *Wallet) UserID() uuid.UUID               { return w.userID }
func (w *Wallet) Balance() valueobjects.Amount    { return w.balance }
func (w *Wallet) Status() WalletStatus            { return w.status }
func (w *Wallet) Version() int64                  { return w.version }
func (w *Wallet) CreatedAt() time.Time            { return w.createdAt }
func (w *Wallet) UpdatedAt() time.Time            { return w.updatedAt }

// IsActive reports whether non-admin commands may operate on the wallet.
func (w *Wallet) IsActive() bool {
	return w.status == WalletStatusActive
}

// Credit adds amount to the balance and bumps the version.
func (w *Wallet) Credit(amount valueobjects.Amount) error {
	if !w.IsActive() {
		return domainErrors.ErrWalletNotActive
	}

	w.balance = w.balance.Add(amount)
	w.touch()
	return nil
}

// Debit subtracts amount from the balance and bumps the version.
// Fails with ErrInsufficientFunds if the balance would go negative.
func (w *Wallet) Debit(amount valueobjects.Amount) error {
	if !w.IsActive() {
		return domainErrors.ErrWalletNotActive
	}

	newBalance, err := w.balance.Sub(amount)
	if err != nil {
		return domainErrors.ErrInsufficientFunds
	}

	w.balance = newBalance
	w.touch()
	return nil
}

// Freeze transitions ACTIVE -> FROZEN. Admin operation.
func (w *Wallet) Freeze() error {
	if w.status != WalletStatusActive {
		return domainErrors.ErrInvalidStatusChange
	}
	w.status = WalletStatusFrozen
	w.touch()
	return nil
}

// Unfreeze transitions FROZEN -> ACTIVE. Admin operation.
func (w *Wallet) Unfreeze() error {
	if w.status != WalletStatusFrozen {
		return domainErrors.ErrInvalidStatusChange
	}
	w.status = WalletStatusActive
	w.touch()
	return nil
}

// Close transitions ACTIVE -> CLOSED. Terminal; requires a zero balance.
// A frozen wallet must be unfrozen first.
func (w *Wallet) Close() error {
	if w.status == WalletStatusClosed {
		return domainErrors.ErrWalletClosed
	}
	if w.status != WalletStatusActive {
		return domainErrors.ErrInvalidStatusChange
	}
	if !w.balance.IsZero() {
		return domainErrors.ErrWalletNotEmpty
	}
	w.status = WalletStatusClosed
	w.touch()
	return nil
}

// touch bumps the version and updatedAt. Every successful mutation goes
// through here so the version sequence stays dense.
func (w *Wallet) touch() {
	w.version++
	w.updatedAt = time.Now().UTC()
}
