package commands

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/events"
)

// TransferHandler moves funds between two wallets and emits a single
// wallet.funds_transferred event.
//
// Both wallet rows are written in ascending id order so two opposing
// transfers never take the AB/BA update order that deadlocks. The debit
// still goes to the source and the credit to the destination regardless of
// which row is written first.
type TransferHandler struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	publisher  ports.EventPublisher
	uow        ports.UnitOfWork
}

// NewTransferHandler wires the handler.
func NewTransferHandler(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	publisher ports.EventPublisher,
	uow ports.UnitOfWork,
) *TransferHandler {
	return &TransferHandler{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		publisher:  publisher,
		uow:        uow,
	}
}

// Execute runs the transfer inside one write-store transaction.
// The idempotency key is scoped to the source wallet.
func (h *TransferHandler) Execute(ctx context.Context, cmd TransferCommand) (*entities.Transaction, error) {
	if !cmd.Amount.IsPositive() {
		return nil, domainErrors.ValidationError{Field: "amount", Message: "must be positive"}
	}
	if cmd.SourceWalletID == cmd.DestinationWalletID {
		return nil, domainErrors.ErrSameWalletTransfer
	}

	var result *entities.Transaction

	err := h.uow.Execute(ctx, func(txCtx context.Context) error {
		replay, err := findReplay(txCtx, h.txRepo, cmd.SourceWalletID, cmd.ReferenceID, cmd.Amount)
		if err != nil {
			return err
		}
		if replay != nil {
			result = replay
			return nil
		}

		source, err := h.walletRepo.FindByID(txCtx, cmd.SourceWalletID)
		if err != nil {
			return fmt.Errorf("source wallet: %w", err)
		}
		dest, err := h.walletRepo.FindByID(txCtx, cmd.DestinationWalletID)
		if err != nil {
			return fmt.Errorf("destination wallet: %w", err)
		}

		if !source.IsActive() || !dest.IsActive() {
			return domainErrors.ErrWalletNotActive
		}

		if err := source.Debit(cmd.Amount); err != nil {
			return err
		}
		if err := dest.Credit(cmd.Amount); err != nil {
			return err
		}

		for _, w := range orderByID(source, dest) {
			if err := h.walletRepo.Save(txCtx, w); err != nil {
				return err
			}
		}

		tx := entities.NewTransfer(cmd.SourceWalletID, cmd.DestinationWalletID, cmd.Amount, cmd.ReferenceID, cmd.Description)
		if err := h.txRepo.Save(txCtx, tx); err != nil {
			return fmt.Errorf("failed to save transfer transaction: %w", err)
		}

		env, err := events.NewFundsTransferred(
			source.ID(), dest.ID(), tx.ID(),
			cmd.Amount, cmd.ReferenceID,
			source.Balance(), dest.Balance(),
		)
		if err != nil {
			return err
		}
		if err := h.publisher.Publish(txCtx, env); err != nil {
			return fmt.Errorf("failed to publish funds_transferred: %w", err)
		}

		result = tx
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

// orderByID returns the two wallets sorted by ascending id.
func orderByID(a, b *entities.Wallet) [2]*entities.Wallet {
	if lessID(a.ID(), b.ID()) {
		return [2]*entities.Wallet{a, b}
	}
	return [2]*entities.Wallet{b, a}
}

func lessID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
