package usecases

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/velopay/walletd/internal/application/commands"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// Contention tests drive the facade from multiple goroutines against the
// version-checked in-memory store, so lost updates would surface as wrong
// final balances.

func TestWalletService_ConcurrentDeposits(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	wallet := f.createFundedWallet(t, "0")

	const perClient = 100
	var wg sync.WaitGroup
	errs := make(chan error, 2*perClient)

	for _, client := range []string{"a", "b"} {
		wg.Add(1)
		go func(client string) {
			defer wg.Done()
			for i := 0; i < perClient; i++ {
				_, err := f.service.Deposit(ctx, commands.DepositCommand{
					WalletID:    wallet.ID(),
					Amount:      valueobjects.MustAmount("1.00"),
					ReferenceID: fmt.Sprintf("%s-%d", client, i),
				})
				if err != nil {
					errs <- fmt.Errorf("deposit %s-%d: %w", client, i, err)
				}
			}
		}(client)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	stored, err := f.wallets.FindByID(ctx, wallet.ID())
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if stored.Balance().String() != "200.0000" {
		t.Errorf("balance = %s, want 200.0000", stored.Balance())
	}
	// Version must be dense: one bump per applied command (plus create).
	if stored.Version() != 2*perClient {
		t.Errorf("version = %d, want %d", stored.Version(), 2*perClient)
	}
}

func TestWalletService_ConcurrentOpposingTransfers(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	w1 := f.createFundedWallet(t, "100")
	w2 := f.createFundedWallet(t, "100")

	const perDirection = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*perDirection)

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < perDirection; i++ {
			_, err := f.service.Transfer(ctx, commands.TransferCommand{
				SourceWalletID:      w1.ID(),
				DestinationWalletID: w2.ID(),
				Amount:              valueobjects.MustAmount("1.00"),
				ReferenceID:         fmt.Sprintf("fwd-%d", i),
			})
			if err != nil {
				errs <- fmt.Errorf("forward transfer %d: %w", i, err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < perDirection; i++ {
			_, err := f.service.Transfer(ctx, commands.TransferCommand{
				SourceWalletID:      w2.ID(),
				DestinationWalletID: w1.ID(),
				Amount:              valueobjects.MustAmount("1.00"),
				ReferenceID:         fmt.Sprintf("rev-%d", i),
			})
			if err != nil {
				errs <- fmt.Errorf("reverse transfer %d: %w", i, err)
			}
		}
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	b1, _ := f.wallets.FindByID(ctx, w1.ID())
	b2, _ := f.wallets.FindByID(ctx, w2.ID())
	if b1.Balance().String() != "100.0000" {
		t.Errorf("w1 balance = %s, want 100.0000", b1.Balance())
	}
	if b2.Balance().String() != "100.0000" {
		t.Errorf("w2 balance = %s, want 100.0000", b2.Balance())
	}

	// Opposing transfers conserve the total.
	total := b1.Balance().Add(b2.Balance())
	if total.String() != "200.0000" {
		t.Errorf("total = %s, want 200.0000", total)
	}

	txs, _ := f.txs.FindByWalletID(ctx, w1.ID(), 0, 0)
	rev, _ := f.txs.FindByWalletID(ctx, w2.ID(), 0, 0)
	if got := len(txs) + len(rev); got != 2*perDirection+2 {
		t.Errorf("transaction count = %d, want %d (transfers plus two seeds)", got, 2*perDirection+2)
	}
}
