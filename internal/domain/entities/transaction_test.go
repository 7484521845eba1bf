package entities

import (
	"testing"

	"github.com/google/uuid"

	"github.com/velopay/walletd/internal/domain/valueobjects"
)

func TestNewDeposit(t *testing.T) {
	walletID := uuid.New()
	tx := NewDeposit(walletID, valueobjects.MustAmount("25"), "ref-1", "top up")

	if tx.ID() == uuid.Nil {
		t.Error("transaction id should be set")
	}
	if tx.WalletID() != walletID {
		t.Errorf("wallet id = %s, want %s", tx.WalletID(), walletID)
	}
	if tx.DestinationWalletID() != nil {
		t.Error("deposit should have no destination wallet")
	}
	if tx.Type() != TransactionTypeDeposit {
		t.Errorf("type = %s, want DEPOSIT", tx.Type())
	}
	if tx.ReferenceID() != "ref-1" {
		t.Errorf("reference id = %s, want ref-1", tx.ReferenceID())
	}
	if !tx.IsCompleted() {
		t.Error("new transactions should be completed")
	}
}

func TestNewWithdrawal(t *testing.T) {
	tx := NewWithdrawal(uuid.New(), valueobjects.MustAmount("5"), "ref-2", "")

	if tx.Type() != TransactionTypeWithdrawal {
		t.Errorf("type = %s, want WITHDRAWAL", tx.Type())
	}
	if tx.DestinationWalletID() != nil {
		t.Error("withdrawal should have no destination wallet")
	}
}

func TestNewTransfer(t *testing.T) {
	source := uuid.New()
	dest := uuid.New()
	tx := NewTransfer(source, dest, valueobjects.MustAmount("15"), "ref-3", "rent split")

	if tx.Type() != TransactionTypeTransfer {
		t.Errorf("type = %s, want TRANSFER", tx.Type())
	}
	if tx.WalletID() != source {
		t.Errorf("wallet id = %s, want source %s", tx.WalletID(), source)
	}
	if tx.DestinationWalletID() == nil || *tx.DestinationWalletID() != dest {
		t.Errorf("destination = %v, want %s", tx.DestinationWalletID(), dest)
	}
}

func TestTransactionType_IsValid(t *testing.T) {
	for _, typ := range []TransactionType{TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer} {
		if !typ.IsValid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if TransactionType("REFUND").IsValid() {
		t.Error("unknown type should not be valid")
	}
}
