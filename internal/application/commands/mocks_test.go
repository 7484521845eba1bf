package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/events"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// Hand-rolled mocks: a struct with one func field per port method. Tests set
// only the funcs they care about; unset funcs fall back to a benign default.

type mockWalletRepo struct {
	saveFn           func(ctx context.Context, wallet *entities.Wallet) error
	findByIDFn       func(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	findByUserIDFn   func(ctx context.Context, userID uuid.UUID) ([]*entities.Wallet, error)
	existsByUserIDFn func(ctx context.Context, userID uuid.UUID) (bool, error)
}

func (m *mockWalletRepo) Save(ctx context.Context, wallet *entities.Wallet) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, wallet)
	}
	return nil
}

func (m *mockWalletRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockWalletRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.Wallet, error) {
	if m.findByUserIDFn != nil {
		return m.findByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockWalletRepo) ExistsByUserID(ctx context.Context, userID uuid.UUID) (bool, error) {
	if m.existsByUserIDFn != nil {
		return m.existsByUserIDFn(ctx, userID)
	}
	return false, nil
}

type mockTransactionRepo struct {
	saveFn            func(ctx context.Context, tx *entities.Transaction) error
	findByIDFn        func(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)
	findByReferenceFn func(ctx context.Context, walletID uuid.UUID, referenceID string) (*entities.Transaction, error)
	findByWalletIDFn  func(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.Transaction, error)
}

func (m *mockTransactionRepo) Save(ctx context.Context, tx *entities.Transaction) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, tx)
	}
	return nil
}

func (m *mockTransactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockTransactionRepo) FindByReference(ctx context.Context, walletID uuid.UUID, referenceID string) (*entities.Transaction, error) {
	if m.findByReferenceFn != nil {
		return m.findByReferenceFn(ctx, walletID, referenceID)
	}
	return nil, nil
}

func (m *mockTransactionRepo) FindByWalletID(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.Transaction, error) {
	if m.findByWalletIDFn != nil {
		return m.findByWalletIDFn(ctx, walletID, offset, limit)
	}
	return nil, nil
}

// mockPublisher records published envelopes in order.
type mockPublisher struct {
	publishFn func(ctx context.Context, env events.Envelope) error
	published []events.Envelope
}

func (m *mockPublisher) Publish(ctx context.Context, env events.Envelope) error {
	if m.publishFn != nil {
		return m.publishFn(ctx, env)
	}
	m.published = append(m.published, env)
	return nil
}

// mockUoW passes the callback straight through without a real transaction.
type mockUoW struct {
	executeFn func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockUoW) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.executeFn != nil {
		return m.executeFn(ctx, fn)
	}
	return fn(ctx)
}

var (
	_ ports.WalletRepository      = (*mockWalletRepo)(nil)
	_ ports.TransactionRepository = (*mockTransactionRepo)(nil)
	_ ports.EventPublisher        = (*mockPublisher)(nil)
	_ ports.UnitOfWork            = (*mockUoW)(nil)
)

// activeWallet builds a persisted-looking wallet with the given balance.
func activeWallet(balance string) *entities.Wallet {
	return walletWithStatus(balance, entities.WalletStatusActive)
}

func walletWithStatus(balance string, status entities.WalletStatus) *entities.Wallet {
	now := time.Now().UTC()
	return entities.ReconstructWallet(
		uuid.New(), uuid.New(),
		valueobjects.MustAmount(balance),
		status, 3, now, now,
	)
}
