// Package commands implements the command handlers of the wallet engine.
//
// Each handler runs its whole command inside one write-store transaction via
// the UnitOfWork: the balance update, the transaction row, and the outbox
// row commit together or not at all. Handlers are the only component that
// mutates wallet rows; concurrent commands on the same wallet are serialized
// by the optimistic version check in the repository and retried by the
// resilience wrapper.
package commands

import (
	"context"

	"github.com/google/uuid"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/valueobjects"
	"github.com/velopay/walletd/internal/application/ports"
)

// CreateWalletCommand creates a new wallet for a user.
type CreateWalletCommand struct {
	UserID uuid.UUID
}

// DepositCommand credits a wallet.
type DepositCommand struct {
	WalletID    uuid.UUID
	Amount      valueobjects.Amount
	ReferenceID string
	Description string
}

// WithdrawCommand debits a wallet.
type WithdrawCommand struct {
	WalletID    uuid.UUID
	Amount      valueobjects.Amount
	ReferenceID string
	Description string
}

// TransferCommand moves funds between two wallets.
type TransferCommand struct {
	SourceWalletID      uuid.UUID
	DestinationWalletID uuid.UUID
	Amount              valueobjects.Amount
	ReferenceID         string
	Description         string
}

// ChangeStatusCommand is the admin freeze/unfreeze/close command.
type ChangeStatusCommand struct {
	WalletID uuid.UUID
}

// findReplay looks up a prior COMPLETED transaction for (walletID,
// referenceID). A match with the same amount is an idempotent replay and is
// returned as the result; a match with a different amount is a conflict.
func findReplay(
	ctx context.Context,
	repo ports.TransactionRepository,
	walletID uuid.UUID,
	referenceID string,
	amount valueobjects.Amount,
) (*entities.Transaction, error) {
	existing, err := repo.FindByReference(ctx, walletID, referenceID)
	if err != nil {
		return nil, err
	}
	if existing == nil || !existing.IsCompleted() {
		return nil, nil
	}
	if !existing.Amount().Equal(amount) {
		return nil, domainErrors.ErrDuplicateReference
	}
	return existing, nil
}
