// Package events defines domain events and the versioned envelope stored in
// the outbox and published to the messaging substrate.
//
// Events are immutable facts about what already happened. The envelope bytes
// written to the outbox are published verbatim, so the JSON schema here is a
// wire contract: additions are allowed (unknown fields are ignored on
// decode), removals and renames are gated by the major version in the event
// type name and the minor Version field.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// Aggregate types carried in the envelope.
const (
	AggregateTypeWallet      = "Wallet"
	AggregateTypeTransaction = "Transaction"
)

// Event types. The ".v1" suffix is the major schema version.
const (
	EventTypeWalletCreated    = "wallet.created.v1"
	EventTypeFundsDeposited   = "wallet.funds_deposited.v1"
	EventTypeFundsWithdrawn   = "wallet.funds_withdrawn.v1"
	EventTypeFundsTransferred = "wallet.funds_transferred.v1"
	EventTypeWalletFrozen     = "wallet.frozen.v1"
	EventTypeWalletUnfrozen   = "wallet.unfrozen.v1"
	EventTypeWalletClosed     = "wallet.closed.v1"
)

// SchemaVersion is the current minor schema version of all payloads.
const SchemaVersion = 1

// Envelope is the serialized form of a domain event. It is stored in the
// outbox payload column and published to the broker byte-for-byte.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Version       int             `json:"version"`
	Payload       json.RawMessage `json:"payload"`
}

// Encode renders the envelope as canonical JSON.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses envelope bytes. Unknown fields are ignored so newer
// producers do not break older consumers.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode event envelope: %w", err)
	}
	if env.EventID == uuid.Nil || env.EventType == "" {
		return Envelope{}, fmt.Errorf("invalid event envelope: missing event_id or event_type")
	}
	return env, nil
}

// DecodePayload unmarshals the envelope payload into dst.
func (e Envelope) DecodePayload(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.EventType, err)
	}
	return nil
}

// newEnvelope wraps a payload struct into an envelope.
func newEnvelope(eventType, aggregateType string, aggregateID uuid.UUID, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}

	return Envelope{
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    time.Now().UTC(),
		Version:       SchemaVersion,
		Payload:       raw,
	}, nil
}

// ===== Payloads =====

// WalletCreated is raised when a new wallet is created.
type WalletCreated struct {
	WalletID  uuid.UUID `json:"wallet_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FundsDeposited is raised when a deposit commits.
type FundsDeposited struct {
	WalletID      uuid.UUID           `json:"wallet_id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	Amount        valueobjects.Amount `json:"amount"`
	ReferenceID   string              `json:"reference_id"`
	NewBalance    valueobjects.Amount `json:"new_balance"`
}

// FundsWithdrawn is raised when a withdrawal commits.
type FundsWithdrawn struct {
	WalletID      uuid.UUID           `json:"wallet_id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	Amount        valueobjects.Amount `json:"amount"`
	ReferenceID   string              `json:"reference_id"`
	NewBalance    valueobjects.Amount `json:"new_balance"`
}

// FundsTransferred is raised when a transfer commits. A single event carries
// both sides; the projector applies debit and credit atomically.
type FundsTransferred struct {
	SourceWalletID      uuid.UUID           `json:"source_wallet_id"`
	DestinationWalletID uuid.UUID           `json:"destination_wallet_id"`
	TransactionID       uuid.UUID           `json:"transaction_id"`
	Amount              valueobjects.Amount `json:"amount"`
	ReferenceID         string              `json:"reference_id"`
	SourceBalance       valueobjects.Amount `json:"source_balance"`
	DestinationBalance  valueobjects.Amount `json:"destination_balance"`
}

// WalletStatusChanged is the shared payload for frozen/unfrozen/closed events.
type WalletStatusChanged struct {
	WalletID uuid.UUID `json:"wallet_id"`
	Status   string    `json:"status"`
}

// ===== Constructors =====

// NewWalletCreated builds the wallet.created envelope.
func NewWalletCreated(walletID, userID uuid.UUID, createdAt time.Time) (Envelope, error) {
	return newEnvelope(EventTypeWalletCreated, AggregateTypeWallet, walletID, WalletCreated{
		WalletID:  walletID,
		UserID:    userID,
		CreatedAt: createdAt,
	})
}

// NewFundsDeposited builds the funds_deposited envelope.
func NewFundsDeposited(walletID, transactionID uuid.UUID, amount valueobjects.Amount, referenceID string, newBalance valueobjects.Amount) (Envelope, error) {
	return newEnvelope(EventTypeFundsDeposited, AggregateTypeWallet, walletID, FundsDeposited{
		WalletID:      walletID,
		TransactionID: transactionID,
		Amount:        amount,
		ReferenceID:   referenceID,
		NewBalance:    newBalance,
	})
}

// NewFundsWithdrawn builds the funds_withdrawn envelope.
func NewFundsWithdrawn(walletID, transactionID uuid.UUID, amount valueobjects.Amount, referenceID string, newBalance valueobjects.Amount) (Envelope, error) {
	return newEnvelope(EventTypeFundsWithdrawn, AggregateTypeWallet, walletID, FundsWithdrawn{
		WalletID:      walletID,
		TransactionID: transactionID,
		Amount:        amount,
		ReferenceID:   referenceID,
		NewBalance:    newBalance,
	})
}

// NewFundsTransferred builds the funds_transferred envelope. The aggregate id
// is the source wallet: ordering on the contended (debited) side is the one
// that matters for convergence.
func NewFundsTransferred(sourceID, destinationID, transactionID uuid.UUID, amount valueobjects.Amount, referenceID string, sourceBalance, destinationBalance valueobjects.Amount) (Envelope, error) {
	return newEnvelope(EventTypeFundsTransferred, AggregateTypeWallet, sourceID, FundsTransferred{
		SourceWalletID:      sourceID,
		DestinationWalletID: destinationID,
		TransactionID:       transactionID,
		Amount:              amount,
		ReferenceID:         referenceID,
		SourceBalance:       sourceBalance,
		DestinationBalance:  destinationBalance,
	})
}

// NewWalletStatusChanged builds a frozen/unfrozen/closed envelope.
func NewWalletStatusChanged(eventType string, walletID uuid.UUID, status string) (Envelope, error) {
	return newEnvelope(eventType, AggregateTypeWallet, walletID, WalletStatusChanged{
		WalletID: walletID,
		Status:   status,
	})
}
