package commands

import (
	"context"
	"fmt"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/events"
)

// DepositHandler credits a wallet and emits wallet.funds_deposited.
type DepositHandler struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	publisher  ports.EventPublisher
	uow        ports.UnitOfWork
}

// NewDepositHandler wires the handler.
func NewDepositHandler(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	publisher ports.EventPublisher,
	uow ports.UnitOfWork,
) *DepositHandler {
	return &DepositHandler{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		publisher:  publisher,
		uow:        uow,
	}
}

// Execute runs the deposit inside one write-store transaction.
//
// Idempotency: a replay with the same (walletID, referenceID, amount)
// returns the original transaction without touching the balance; the same
// reference with a different amount is rejected.
func (h *DepositHandler) Execute(ctx context.Context, cmd DepositCommand) (*entities.Transaction, error) {
	if !cmd.Amount.IsPositive() {
		return nil, domainErrors.ValidationError{Field: "amount", Message: "must be positive"}
	}

	var result *entities.Transaction

	err := h.uow.Execute(ctx, func(txCtx context.Context) error {
		replay, err := findReplay(txCtx, h.txRepo, cmd.WalletID, cmd.ReferenceID, cmd.Amount)
		if err != nil {
			return err
		}
		if replay != nil {
			result = replay
			return nil
		}

		wallet, err := h.walletRepo.FindByID(txCtx, cmd.WalletID)
		if err != nil {
			return err
		}

		if err := wallet.Credit(cmd.Amount); err != nil {
			return err
		}
		if err := h.walletRepo.Save(txCtx, wallet); err != nil {
			return err
		}

		tx := entities.NewDeposit(cmd.WalletID, cmd.Amount, cmd.ReferenceID, cmd.Description)
		if err := h.txRepo.Save(txCtx, tx); err != nil {
			return fmt.Errorf("failed to save deposit transaction: %w", err)
		}

		env, err := events.NewFundsDeposited(wallet.ID(), tx.ID(), cmd.Amount, cmd.ReferenceID, wallet.Balance())
		if err != nil {
			return err
		}
		if err := h.publisher.Publish(txCtx, env); err != nil {
			return fmt.Errorf("failed to publish funds_deposited: %w", err)
		}

		result = tx
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}
