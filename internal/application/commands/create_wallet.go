package commands

import (
	"context"
	"fmt"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/events"
)

// CreateWalletHandler creates a new wallet and emits wallet.created.
//
// Whether a user may own more than one wallet is configuration: with
// singlePerUser on, a second CreateWallet for the same user fails.
type CreateWalletHandler struct {
	walletRepo    ports.WalletRepository
	publisher     ports.EventPublisher
	uow           ports.UnitOfWork
	singlePerUser bool
}

// NewCreateWalletHandler wires the handler.
func NewCreateWalletHandler(
	walletRepo ports.WalletRepository,
	publisher ports.EventPublisher,
	uow ports.UnitOfWork,
	singlePerUser bool,
) *CreateWalletHandler {
	return &CreateWalletHandler{
		walletRepo:    walletRepo,
		publisher:     publisher,
		uow:           uow,
		singlePerUser: singlePerUser,
	}
}

// Execute creates the wallet inside one write-store transaction.
func (h *CreateWalletHandler) Execute(ctx context.Context, cmd CreateWalletCommand) (*entities.Wallet, error) {
	var wallet *entities.Wallet

	err := h.uow.Execute(ctx, func(txCtx context.Context) error {
		if h.singlePerUser {
			exists, err := h.walletRepo.ExistsByUserID(txCtx, cmd.UserID)
			if err != nil {
				return fmt.Errorf("failed to check existing wallets: %w", err)
			}
			if exists {
				return domainErrors.ErrWalletAlreadyExists
			}
		}

		wallet = entities.NewWallet(cmd.UserID)
		if err := h.walletRepo.Save(txCtx, wallet); err != nil {
			return fmt.Errorf("failed to save wallet: %w", err)
		}

		env, err := events.NewWalletCreated(wallet.ID(), wallet.UserID(), wallet.CreatedAt())
		if err != nil {
			return err
		}
		if err := h.publisher.Publish(txCtx, env); err != nil {
			return fmt.Errorf("failed to publish wallet.created: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}
	return wallet, nil
}
