package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/events"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

func TestDepositHandler_Execute(t *testing.T) {
	wallet := activeWallet("100.00")
	startVersion := wallet.Version()

	var savedWallet *entities.Wallet
	walletRepo := &mockWalletRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (*entities.Wallet, error) {
			if id != wallet.ID() {
				return nil, domainErrors.ErrWalletNotFound
			}
			return wallet, nil
		},
		saveFn: func(_ context.Context, w *entities.Wallet) error {
			savedWallet = w
			return nil
		},
	}

	var savedTx *entities.Transaction
	txRepo := &mockTransactionRepo{
		saveFn: func(_ context.Context, tx *entities.Transaction) error {
			savedTx = tx
			return nil
		},
	}
	publisher := &mockPublisher{}

	handler := NewDepositHandler(walletRepo, txRepo, publisher, &mockUoW{})

	tx, err := handler.Execute(context.Background(), DepositCommand{
		WalletID:    wallet.ID(),
		Amount:      valueobjects.MustAmount("25.50"),
		ReferenceID: "dep-1",
		Description: "payroll",
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if savedWallet == nil || savedWallet.Balance().String() != "125.5000" {
		t.Errorf("saved balance = %v, want 125.5000", savedWallet)
	}
	if savedWallet.Version() != startVersion+1 {
		t.Errorf("version = %d, want %d", savedWallet.Version(), startVersion+1)
	}
	if savedTx != tx || tx.Type() != entities.TransactionTypeDeposit {
		t.Error("deposit transaction not saved")
	}

	if len(publisher.published) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.published))
	}
	env := publisher.published[0]
	if env.EventType != events.EventTypeFundsDeposited {
		t.Errorf("event type = %s, want %s", env.EventType, events.EventTypeFundsDeposited)
	}
	var payload events.FundsDeposited
	if err := env.DecodePayload(&payload); err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}
	if payload.NewBalance.String() != "125.5000" {
		t.Errorf("event balance = %s, want 125.5000", payload.NewBalance)
	}
}

func TestDepositHandler_IdempotentReplay(t *testing.T) {
	wallet := activeWallet("100.00")
	amount := valueobjects.MustAmount("25.50")
	original := entities.NewDeposit(wallet.ID(), amount, "dep-1", "")

	findCalled := false
	walletRepo := &mockWalletRepo{
		findByIDFn: func(_ context.Context, _ uuid.UUID) (*entities.Wallet, error) {
			findCalled = true
			return wallet, nil
		},
	}
	txRepo := &mockTransactionRepo{
		findByReferenceFn: func(_ context.Context, _ uuid.UUID, ref string) (*entities.Transaction, error) {
			if ref == "dep-1" {
				return original, nil
			}
			return nil, nil
		},
	}
	publisher := &mockPublisher{}

	handler := NewDepositHandler(walletRepo, txRepo, publisher, &mockUoW{})

	tx, err := handler.Execute(context.Background(), DepositCommand{
		WalletID:    wallet.ID(),
		Amount:      amount,
		ReferenceID: "dep-1",
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if tx != original {
		t.Error("replay should return the original transaction")
	}
	if findCalled {
		t.Error("replay must not load or touch the wallet")
	}
	if len(publisher.published) != 0 {
		t.Error("replay must not publish a second event")
	}
}

func TestDepositHandler_DuplicateReferenceDifferentAmount(t *testing.T) {
	wallet := activeWallet("100.00")
	original := entities.NewDeposit(wallet.ID(), valueobjects.MustAmount("25.50"), "dep-1", "")

	txRepo := &mockTransactionRepo{
		findByReferenceFn: func(_ context.Context, _ uuid.UUID, _ string) (*entities.Transaction, error) {
			return original, nil
		},
	}

	handler := NewDepositHandler(&mockWalletRepo{}, txRepo, &mockPublisher{}, &mockUoW{})

	_, err := handler.Execute(context.Background(), DepositCommand{
		WalletID:    wallet.ID(),
		Amount:      valueobjects.MustAmount("99.99"),
		ReferenceID: "dep-1",
	})
	if !errors.Is(err, domainErrors.ErrDuplicateReference) {
		t.Errorf("error = %v, want ErrDuplicateReference", err)
	}
}

func TestDepositHandler_WalletNotActive(t *testing.T) {
	wallet := walletWithStatus("100.00", entities.WalletStatusFrozen)
	walletRepo := &mockWalletRepo{
		findByIDFn: func(_ context.Context, _ uuid.UUID) (*entities.Wallet, error) {
			return wallet, nil
		},
	}

	handler := NewDepositHandler(walletRepo, &mockTransactionRepo{}, &mockPublisher{}, &mockUoW{})

	_, err := handler.Execute(context.Background(), DepositCommand{
		WalletID:    wallet.ID(),
		Amount:      valueobjects.MustAmount("1"),
		ReferenceID: "dep-1",
	})
	if !errors.Is(err, domainErrors.ErrWalletNotActive) {
		t.Errorf("error = %v, want ErrWalletNotActive", err)
	}
}

func TestDepositHandler_NonPositiveAmount(t *testing.T) {
	handler := NewDepositHandler(&mockWalletRepo{}, &mockTransactionRepo{}, &mockPublisher{}, &mockUoW{})

	_, err := handler.Execute(context.Background(), DepositCommand{
		WalletID:    uuid.New(),
		Amount:      valueobjects.Zero(),
		ReferenceID: "dep-1",
	})
	if !domainErrors.IsValidationError(err) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}
