// Package entities - Transaction records a single completed balance operation.
package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// TransactionType represents the kind of balance operation.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
)

// IsValid checks if the transaction type is valid.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer:
		return true
	default:
		return false
	}
}

// TransactionStatus represents the lifecycle state of a transaction.
// In the common path transactions are written COMPLETED at commit; FAILED
// rows only appear when a handler persists a rejection for audit.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is an immutable record of a balance change.
// (walletID, referenceID) is unique: the reference is the idempotency key.
// For transfers walletID is the source and destinationWalletID is set.
type Transaction struct {
	id                  uuid.UUID
	walletID            uuid.UUID
	destinationWalletID *uuid.UUID
	txType              TransactionType
	amount              valueobjects.Amount
	referenceID         string
	status              TransactionStatus
	description         string
	createdAt           time.Time
}

// NewDeposit creates a completed deposit transaction.
func NewDeposit(walletID uuid.UUID, amount valueobjects.Amount, referenceID, description string) *Transaction {
	return newTransaction(walletID, nil, TransactionTypeDeposit, amount, referenceID, description)
}

// NewWithdrawal creates a completed withdrawal transaction.
func NewWithdrawal(walletID uuid.UUID, amount valueobjects.Amount, referenceID, description string) *Transaction {
	return newTransaction(walletID, nil, TransactionTypeWithdrawal, amount, referenceID, description)
}

// NewTransfer creates the single completed transaction row describing a
// directed transfer from source to destination.
func NewTransfer(sourceID, destinationID uuid.UUID, amount valueobjects.Amount, referenceID, description string) *Transaction {
	return newTransaction(sourceID, &destinationID, TransactionTypeTransfer, amount, referenceID, description)
}

func newTransaction(
	walletID uuid.UUID,
	destinationID *uuid.UUID,
	txType TransactionType,
	amount valueobjects.Amount,
	referenceID, description string,
) *Transaction {
	return &Transaction{
		id:                  uuid.New(),
		walletID:            walletID,
		destinationWalletID: destinationID,
		txType:              txType,
		amount:              amount,
		referenceID:         referenceID,
		status:              TransactionStatusCompleted,
		description:         description,
		createdAt:           time.Now().UTC(),
	}
}

// ReconstructTransaction rebuilds a Transaction from persistence.
func ReconstructTransaction(
	id, walletID uuid.UUID,
	destinationWalletID *uuid.UUID,
	txType TransactionType,
	amount valueobjects.Amount,
	referenceID string,
	status TransactionStatus,
	description string,
	createdAt time.Time,
) *Transaction {
	return &Transaction{
		id:                  id,
		walletID:            walletID,
		destinationWalletID: destinationWalletID,
		txType:              txType,
		amount:              amount,
		referenceID:         referenceID,
		status:              status,
		description:         description,
		createdAt:           createdAt,
	}
}

func (t *Transaction) ID() uuid.UUID                    { return t.id }
func (t *Transaction) WalletID() uuid.UUID              { return t.walletID }
func (t *Transaction) DestinationWalletID() *uuid.UUID  { return t.destinationWalletID }
func (t *Transaction) Type() TransactionType            { return t.txType }
func (t *Transaction) Amount() valueobjects.Amount      { return t.amount }
func (t *Transaction) ReferenceID() string              { return t.referenceID }
func (t *Transaction) Status() TransactionStatus        { return t.status }
func (t *Transaction) Description() string              { return t.description }
func (t *Transaction) CreatedAt() time.Time             { return t.createdAt }

// IsCompleted reports whether the transaction committed successfully.
func (t *Transaction) IsCompleted() bool {
	return t.status == TransactionStatusCompleted
}
