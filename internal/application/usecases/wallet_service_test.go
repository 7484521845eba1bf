package usecases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/application/commands"
	"github.com/velopay/walletd/internal/application/resilience"
	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/events"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// memWalletRepo is an in-memory wallet store with real optimistic locking,
// so the facade tests exercise the retry loop against genuine conflicts.
type memWalletRepo struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*entities.Wallet

	// conflictsLeft injects a version conflict on the next N saves.
	conflictsLeft int
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{wallets: make(map[uuid.UUID]*entities.Wallet)}
}

func (r *memWalletRepo) Save(_ context.Context, wallet *entities.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return domainErrors.NewConcurrencyError("wallet", wallet.ID().String(), "version mismatch")
	}

	stored, ok := r.wallets[wallet.ID()]
	if wallet.Version() == 0 {
		if ok {
			return domainErrors.ErrWalletAlreadyExists
		}
	} else if !ok || stored.Version() != wallet.Version()-1 {
		return domainErrors.NewConcurrencyError("wallet", wallet.ID().String(), "version mismatch")
	}

	r.wallets[wallet.ID()] = entities.ReconstructWallet(
		wallet.ID(), wallet.UserID(), wallet.Balance(),
		wallet.Status(), wallet.Version(), wallet.CreatedAt(), wallet.UpdatedAt(),
	)
	return nil
}

// Stored wallets are never mutated in place, so a shallow map copy is a
// consistent snapshot.
func (r *memWalletRepo) snapshot() map[uuid.UUID]*entities.Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := make(map[uuid.UUID]*entities.Wallet, len(r.wallets))
	for id, w := range r.wallets {
		snap[id] = w
	}
	return snap
}

func (r *memWalletRepo) restore(snap map[uuid.UUID]*entities.Wallet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets = snap
}

func (r *memWalletRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.wallets[id]
	if !ok {
		return nil, domainErrors.ErrWalletNotFound
	}
	return entities.ReconstructWallet(
		w.ID(), w.UserID(), w.Balance(), w.Status(), w.Version(), w.CreatedAt(), w.UpdatedAt(),
	), nil
}

func (r *memWalletRepo) FindByUserID(_ context.Context, userID uuid.UUID) ([]*entities.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entities.Wallet
	for _, w := range r.wallets {
		if w.UserID() == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *memWalletRepo) ExistsByUserID(_ context.Context, userID uuid.UUID) (bool, error) {
	wallets, _ := r.FindByUserID(context.Background(), userID)
	return len(wallets) > 0, nil
}

type memTxRepo struct {
	mu  sync.Mutex
	txs []*entities.Transaction

	// missReferenceOnce makes the next FindByReference for this reference
	// miss, simulating a concurrent identical command whose row commits
	// between this command's replay lookup and its insert.
	missReferenceOnce string
}

func (r *memTxRepo) Save(_ context.Context, tx *entities.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.txs {
		if existing.WalletID() == tx.WalletID() && existing.ReferenceID() == tx.ReferenceID() {
			// Same mapping as the write store: a lost insert race is a
			// retryable conflict, resolved by the replay lookup on retry.
			return domainErrors.NewConcurrencyError("transaction", tx.ReferenceID(),
				"reference committed concurrently")
		}
	}
	r.txs = append(r.txs, tx)
	return nil
}

func (r *memTxRepo) length() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs)
}

func (r *memTxRepo) truncate(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = r.txs[:n]
}

func (r *memTxRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tx := range r.txs {
		if tx.ID() == id {
			return tx, nil
		}
	}
	return nil, domainErrors.ErrTransactionNotFound
}

func (r *memTxRepo) FindByReference(_ context.Context, walletID uuid.UUID, referenceID string) (*entities.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.missReferenceOnce != "" && referenceID == r.missReferenceOnce {
		r.missReferenceOnce = ""
		return nil, nil
	}

	for _, tx := range r.txs {
		if tx.WalletID() == walletID && tx.ReferenceID() == referenceID {
			return tx, nil
		}
	}
	return nil, nil
}

func (r *memTxRepo) FindByWalletID(_ context.Context, walletID uuid.UUID, _, _ int) ([]*entities.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entities.Transaction
	for _, tx := range r.txs {
		if tx.WalletID() == walletID {
			out = append(out, tx)
		}
	}
	return out, nil
}

type memPublisher struct {
	mu        sync.Mutex
	published []events.Envelope
}

func (p *memPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, env)
	return nil
}

func (p *memPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func (p *memPublisher) truncate(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = p.published[:n]
}

// memUoW runs each command atomically against the in-memory stores: state is
// snapshotted before the callback and restored when it fails, and commands
// are serialized the way row locks in the write store would serialize them.
type memUoW struct {
	mu      sync.Mutex
	wallets *memWalletRepo
	txs     *memTxRepo
	pub     *memPublisher
}

func (u *memUoW) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	walletSnap := u.wallets.snapshot()
	txLen := u.txs.length()
	pubLen := u.pub.count()

	if err := fn(ctx); err != nil {
		u.wallets.restore(walletSnap)
		u.txs.truncate(txLen)
		u.pub.truncate(pubLen)
		return err
	}
	return nil
}

type serviceFixture struct {
	service   *WalletService
	wallets   *memWalletRepo
	txs       *memTxRepo
	publisher *memPublisher
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		wallets:   newMemWalletRepo(),
		txs:       &memTxRepo{},
		publisher: &memPublisher{},
	}

	uow := &memUoW{wallets: f.wallets, txs: f.txs, pub: f.publisher}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := resilience.Policy{
		OptimisticMax:  5,
		OptimisticBase: time.Microsecond,
		OptimisticCap:  10 * time.Microsecond,
		TransientMax:   3,
		TransientBase:  time.Microsecond,
		TransientCap:   10 * time.Microsecond,
	}
	exec := resilience.NewExecutor(policy, resilience.NewDegradationManager(time.Minute, 3, 100), logger)

	f.service = NewWalletService(
		commands.NewCreateWalletHandler(f.wallets, f.publisher, uow, false),
		commands.NewDepositHandler(f.wallets, f.txs, f.publisher, uow),
		commands.NewWithdrawHandler(f.wallets, f.txs, f.publisher, uow),
		commands.NewTransferHandler(f.wallets, f.txs, f.publisher, uow),
		commands.NewFreezeHandler(f.wallets, f.publisher, uow),
		commands.NewUnfreezeHandler(f.wallets, f.publisher, uow),
		commands.NewCloseHandler(f.wallets, f.publisher, uow),
		exec,
		time.Second,
	)
	return f
}

func (f *serviceFixture) createFundedWallet(t *testing.T, balance string) *entities.Wallet {
	t.Helper()
	ctx := context.Background()

	wallet, err := f.service.CreateWallet(ctx, commands.CreateWalletCommand{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("CreateWallet error: %v", err)
	}

	if balance != "0" {
		_, err = f.service.Deposit(ctx, commands.DepositCommand{
			WalletID:    wallet.ID(),
			Amount:      valueobjects.MustAmount(balance),
			ReferenceID: "seed-" + wallet.ID().String(),
		})
		if err != nil {
			t.Fatalf("seed deposit error: %v", err)
		}
	}
	return wallet
}

func TestWalletService_DepositRetriesConflicts(t *testing.T) {
	f := newServiceFixture()
	wallet := f.createFundedWallet(t, "0")

	// Two injected conflicts; the third attempt lands within the budget.
	f.wallets.conflictsLeft = 2

	tx, err := f.service.Deposit(context.Background(), commands.DepositCommand{
		WalletID:    wallet.ID(),
		Amount:      valueobjects.MustAmount("10"),
		ReferenceID: "dep-1",
	})
	if err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	if tx.Amount().String() != "10.0000" {
		t.Errorf("amount = %s, want 10.0000", tx.Amount())
	}

	stored, err := f.wallets.FindByID(context.Background(), wallet.ID())
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if stored.Balance().String() != "10.0000" {
		t.Errorf("balance = %s, want 10.0000 (applied exactly once)", stored.Balance())
	}
}

func TestWalletService_DepositConflictBudgetExhausted(t *testing.T) {
	f := newServiceFixture()
	wallet := f.createFundedWallet(t, "0")

	f.wallets.conflictsLeft = 100

	_, err := f.service.Deposit(context.Background(), commands.DepositCommand{
		WalletID:    wallet.ID(),
		Amount:      valueobjects.MustAmount("10"),
		ReferenceID: "dep-1",
	})

	var re *domainErrors.RetriesExhaustedError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want RetriesExhaustedError", err)
	}
	if re.ExhaustedKind != domainErrors.KindOptimisticLock {
		t.Errorf("kind = %s, want %s", re.ExhaustedKind, domainErrors.KindOptimisticLock)
	}
}

func TestWalletService_TransferEndToEnd(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	source := f.createFundedWallet(t, "100")
	dest := f.createFundedWallet(t, "0")

	_, err := f.service.Transfer(ctx, commands.TransferCommand{
		SourceWalletID:      source.ID(),
		DestinationWalletID: dest.ID(),
		Amount:              valueobjects.MustAmount("40"),
		ReferenceID:         "tr-1",
	})
	if err != nil {
		t.Fatalf("Transfer error: %v", err)
	}

	s, _ := f.wallets.FindByID(ctx, source.ID())
	d, _ := f.wallets.FindByID(ctx, dest.ID())
	if s.Balance().String() != "60.0000" {
		t.Errorf("source balance = %s, want 60.0000", s.Balance())
	}
	if d.Balance().String() != "40.0000" {
		t.Errorf("destination balance = %s, want 40.0000", d.Balance())
	}
}

func TestWalletService_RetryReplaySafety(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	wallet := f.createFundedWallet(t, "0")

	// First deposit commits.
	if _, err := f.service.Deposit(ctx, commands.DepositCommand{
		WalletID:    wallet.ID(),
		Amount:      valueobjects.MustAmount("10"),
		ReferenceID: "dep-1",
	}); err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	before := f.publisher.count()

	// The same command again is an idempotent replay, not a double credit.
	if _, err := f.service.Deposit(ctx, commands.DepositCommand{
		WalletID:    wallet.ID(),
		Amount:      valueobjects.MustAmount("10"),
		ReferenceID: "dep-1",
	}); err != nil {
		t.Fatalf("replay Deposit error: %v", err)
	}

	stored, _ := f.wallets.FindByID(ctx, wallet.ID())
	if stored.Balance().String() != "10.0000" {
		t.Errorf("balance = %s, want 10.0000", stored.Balance())
	}
	if f.publisher.count() != before {
		t.Error("replay must not publish another event")
	}
}

func TestWalletService_LostInsertRaceResolvesToWinner(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	wallet := f.createFundedWallet(t, "0")

	// An identical command from another process commits its row between this
	// command's replay lookup and its insert.
	winner := entities.NewDeposit(wallet.ID(), valueobjects.MustAmount("10"), "dep-1", "")
	if err := f.txs.Save(ctx, winner); err != nil {
		t.Fatalf("commit winner row: %v", err)
	}
	f.txs.missReferenceOnce = "dep-1"

	before := f.publisher.count()

	tx, err := f.service.Deposit(ctx, commands.DepositCommand{
		WalletID:    wallet.ID(),
		Amount:      valueobjects.MustAmount("10"),
		ReferenceID: "dep-1",
	})
	if err != nil {
		t.Fatalf("Deposit error: %v", err)
	}
	if tx.ID() != winner.ID() {
		t.Errorf("transaction id = %s, want the concurrently committed %s", tx.ID(), winner.ID())
	}

	// The losing attempt rolled back: no second credit, no second event.
	stored, _ := f.wallets.FindByID(ctx, wallet.ID())
	if stored.Balance().String() != "0.0000" {
		t.Errorf("balance = %s, want 0.0000 (the credit belongs to the winner's command)", stored.Balance())
	}
	if f.publisher.count() != before {
		t.Error("losing command must not publish an event")
	}
}

func TestWalletService_FreezeBlocksDeposits(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	wallet := f.createFundedWallet(t, "0")

	if _, err := f.service.Freeze(ctx, commands.ChangeStatusCommand{WalletID: wallet.ID()}); err != nil {
		t.Fatalf("Freeze error: %v", err)
	}

	_, err := f.service.Deposit(ctx, commands.DepositCommand{
		WalletID:    wallet.ID(),
		Amount:      valueobjects.MustAmount("10"),
		ReferenceID: "dep-1",
	})
	if !errors.Is(err, domainErrors.ErrWalletNotActive) {
		t.Errorf("error = %v, want ErrWalletNotActive", err)
	}

	if _, err := f.service.Unfreeze(ctx, commands.ChangeStatusCommand{WalletID: wallet.ID()}); err != nil {
		t.Fatalf("Unfreeze error: %v", err)
	}
	if _, err := f.service.Deposit(ctx, commands.DepositCommand{
		WalletID:    wallet.ID(),
		Amount:      valueobjects.MustAmount("10"),
		ReferenceID: "dep-2",
	}); err != nil {
		t.Errorf("deposit after unfreeze should succeed: %v", err)
	}
}
