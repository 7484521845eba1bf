package commands

import (
	"context"
	"fmt"

	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/events"
)

// statusMutation is one admin status transition on the wallet entity.
type statusMutation func(*entities.Wallet) error

// ChangeStatusHandler implements the admin freeze/unfreeze/close commands.
// One handler per transition, sharing the transactional skeleton.
type ChangeStatusHandler struct {
	walletRepo ports.WalletRepository
	publisher  ports.EventPublisher
	uow        ports.UnitOfWork
	eventType  string
	mutate     statusMutation
}

// NewFreezeHandler wires the ACTIVE -> FROZEN transition.
func NewFreezeHandler(walletRepo ports.WalletRepository, publisher ports.EventPublisher, uow ports.UnitOfWork) *ChangeStatusHandler {
	return &ChangeStatusHandler{
		walletRepo: walletRepo,
		publisher:  publisher,
		uow:        uow,
		eventType:  events.EventTypeWalletFrozen,
		mutate:     (*entities.Wallet).Freeze,
	}
}

// NewUnfreezeHandler wires the FROZEN -> ACTIVE transition.
func NewUnfreezeHandler(walletRepo ports.WalletRepository, publisher ports.EventPublisher, uow ports.UnitOfWork) *ChangeStatusHandler {
	return &ChangeStatusHandler{
		walletRepo: walletRepo,
		publisher:  publisher,
		uow:        uow,
		eventType:  events.EventTypeWalletUnfrozen,
		mutate:     (*entities.Wallet).Unfreeze,
	}
}

// NewCloseHandler wires the terminal ACTIVE -> CLOSED transition.
func NewCloseHandler(walletRepo ports.WalletRepository, publisher ports.EventPublisher, uow ports.UnitOfWork) *ChangeStatusHandler {
	return &ChangeStatusHandler{
		walletRepo: walletRepo,
		publisher:  publisher,
		uow:        uow,
		eventType:  events.EventTypeWalletClosed,
		mutate:     (*entities.Wallet).Close,
	}
}

// Execute applies the transition inside one write-store transaction.
func (h *ChangeStatusHandler) Execute(ctx context.Context, cmd ChangeStatusCommand) (*entities.Wallet, error) {
	var wallet *entities.Wallet

	err := h.uow.Execute(ctx, func(txCtx context.Context) error {
		var err error
		wallet, err = h.walletRepo.FindByID(txCtx, cmd.WalletID)
		if err != nil {
			return err
		}

		if err := h.mutate(wallet); err != nil {
			return err
		}
		if err := h.walletRepo.Save(txCtx, wallet); err != nil {
			return err
		}

		env, err := events.NewWalletStatusChanged(h.eventType, wallet.ID(), string(wallet.Status()))
		if err != nil {
			return err
		}
		if err := h.publisher.Publish(txCtx, env); err != nil {
			return fmt.Errorf("failed to publish %s: %w", h.eventType, err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}
	return wallet, nil
}
