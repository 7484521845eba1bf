// Package usecases composes the command handlers with the resilience
// wrapper into the surface the HTTP boundary calls.
//
// Every command runs under the per-command deadline and the retry policy;
// the handlers themselves stay retry-free and single-attempt.
package usecases

import (
	"context"
	"time"

	"github.com/velopay/walletd/internal/application/commands"
	"github.com/velopay/walletd/internal/application/resilience"
	"github.com/velopay/walletd/internal/domain/entities"
)

// Operation names used for metrics and degradation keys.
const (
	OpCreateWallet = "create_wallet"
	OpDeposit      = "deposit"
	OpWithdraw     = "withdraw"
	OpTransfer     = "transfer"
	OpFreeze       = "freeze"
	OpUnfreeze     = "unfreeze"
	OpClose        = "close"
)

// WalletService is the command facade.
type WalletService struct {
	create   *commands.CreateWalletHandler
	deposit  *commands.DepositHandler
	withdraw *commands.WithdrawHandler
	transfer *commands.TransferHandler
	freeze   *commands.ChangeStatusHandler
	unfreeze *commands.ChangeStatusHandler
	close    *commands.ChangeStatusHandler

	exec     *resilience.Executor
	deadline time.Duration
}

// NewWalletService wires the facade. deadline bounds one command end to end,
// retries included.
func NewWalletService(
	create *commands.CreateWalletHandler,
	deposit *commands.DepositHandler,
	withdraw *commands.WithdrawHandler,
	transfer *commands.TransferHandler,
	freeze *commands.ChangeStatusHandler,
	unfreeze *commands.ChangeStatusHandler,
	close *commands.ChangeStatusHandler,
	exec *resilience.Executor,
	deadline time.Duration,
) *WalletService {
	if deadline <= 0 {
		deadline = time.Second
	}
	return &WalletService{
		create:   create,
		deposit:  deposit,
		withdraw: withdraw,
		transfer: transfer,
		freeze:   freeze,
		unfreeze: unfreeze,
		close:    close,
		exec:     exec,
		deadline: deadline,
	}
}

// CreateWallet creates a wallet for a user.
func (s *WalletService) CreateWallet(ctx context.Context, cmd commands.CreateWalletCommand) (*entities.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	var wallet *entities.Wallet
	err := s.exec.Execute(ctx, OpCreateWallet, cmd.UserID.String(), func(ctx context.Context) error {
		var err error
		wallet, err = s.create.Execute(ctx, cmd)
		return err
	})
	return wallet, err
}

// Deposit credits a wallet.
func (s *WalletService) Deposit(ctx context.Context, cmd commands.DepositCommand) (*entities.Transaction, error) {
	return s.runTransaction(ctx, OpDeposit, cmd.WalletID.String(), func(ctx context.Context) (*entities.Transaction, error) {
		return s.deposit.Execute(ctx, cmd)
	})
}

// Withdraw debits a wallet.
func (s *WalletService) Withdraw(ctx context.Context, cmd commands.WithdrawCommand) (*entities.Transaction, error) {
	return s.runTransaction(ctx, OpWithdraw, cmd.WalletID.String(), func(ctx context.Context) (*entities.Transaction, error) {
		return s.withdraw.Execute(ctx, cmd)
	})
}

// Transfer moves funds between wallets. The degradation key is the source
// wallet: that is where the contention shows up.
func (s *WalletService) Transfer(ctx context.Context, cmd commands.TransferCommand) (*entities.Transaction, error) {
	return s.runTransaction(ctx, OpTransfer, cmd.SourceWalletID.String(), func(ctx context.Context) (*entities.Transaction, error) {
		return s.transfer.Execute(ctx, cmd)
	})
}

// Freeze suspends a wallet. Admin.
func (s *WalletService) Freeze(ctx context.Context, cmd commands.ChangeStatusCommand) (*entities.Wallet, error) {
	return s.runStatusChange(ctx, OpFreeze, s.freeze, cmd)
}

// Unfreeze reactivates a frozen wallet. Admin.
func (s *WalletService) Unfreeze(ctx context.Context, cmd commands.ChangeStatusCommand) (*entities.Wallet, error) {
	return s.runStatusChange(ctx, OpUnfreeze, s.unfreeze, cmd)
}

// Close permanently closes an empty wallet. Admin.
func (s *WalletService) Close(ctx context.Context, cmd commands.ChangeStatusCommand) (*entities.Wallet, error) {
	return s.runStatusChange(ctx, OpClose, s.close, cmd)
}

func (s *WalletService) runTransaction(
	ctx context.Context,
	operation, key string,
	fn func(ctx context.Context) (*entities.Transaction, error),
) (*entities.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	var tx *entities.Transaction
	err := s.exec.Execute(ctx, operation, key, func(ctx context.Context) error {
		var err error
		tx, err = fn(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *WalletService) runStatusChange(
	ctx context.Context,
	operation string,
	handler *commands.ChangeStatusHandler,
	cmd commands.ChangeStatusCommand,
) (*entities.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	var wallet *entities.Wallet
	err := s.exec.Execute(ctx, operation, cmd.WalletID.String(), func(ctx context.Context) error {
		var err error
		wallet, err = handler.Execute(ctx, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}
