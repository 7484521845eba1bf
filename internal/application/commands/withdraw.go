package commands

import (
	"context"
	"fmt"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/events"
)

// WithdrawHandler debits a wallet and emits wallet.funds_withdrawn.
// Same structure as DepositHandler plus the insufficient-funds rule.
type WithdrawHandler struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	publisher  ports.EventPublisher
	uow        ports.UnitOfWork
}

// NewWithdrawHandler wires the handler.
func NewWithdrawHandler(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	publisher ports.EventPublisher,
	uow ports.UnitOfWork,
) *WithdrawHandler {
	return &WithdrawHandler{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		publisher:  publisher,
		uow:        uow,
	}
}

// Execute runs the withdrawal inside one write-store transaction.
func (h *WithdrawHandler) Execute(ctx context.Context, cmd WithdrawCommand) (*entities.Transaction, error) {
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

		if err := wallet.Debit(cmd.Amount); err != nil {
			return err
		}
		if err := h.walletRepo.Save(txCtx, wallet); err != nil {
			return err
		}

		tx := entities.NewWithdrawal(cmd.WalletID, cmd.Amount, cmd.ReferenceID, cmd.Description)
		if err := h.txRepo.Save(txCtx, tx); err != nil {
			return fmt.Errorf("failed to save withdrawal transaction: %w", err)
		}

		env, err := events.NewFundsWithdrawn(wallet.ID(), tx.ID(), cmd.Amount, cmd.ReferenceID, wallet.Balance())
		if err != nil {
			return err
		}
		if err := h.publisher.Publish(txCtx, env); err != nil {
			return fmt.Errorf("failed to publish funds_withdrawn: %w", err)
		}

		result = tx
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}
