package queries

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// HistoricalBalanceHandler answers balance-as-of queries from the read-side
// history snapshots appended by the projector.
type HistoricalBalanceHandler struct {
	history  ports.HistoryRepository
	readRepo ports.ReadWalletRepository
}

// NewHistoricalBalanceHandler wires the handler.
func NewHistoricalBalanceHandler(history ports.HistoryRepository, readRepo ports.ReadWalletRepository) *HistoricalBalanceHandler {
	return &HistoricalBalanceHandler{history: history, readRepo: readRepo}
}

// Execute returns the balance the wallet had at asOf.
// With no snapshot that old: zero if the wallet already existed before asOf,
// ErrWalletNotFound otherwise.
func (h *HistoricalBalanceHandler) Execute(ctx context.Context, walletID uuid.UUID, asOf time.Time) (valueobjects.Amount, error) {
	entry, err := h.history.LatestBefore(ctx, walletID, asOf)
	if err != nil {
		return valueobjects.Amount{}, err
	}
	if entry != nil {
		return entry.Balance, nil
	}

	wallet, err := h.readRepo.FindByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrWalletNotFound) {
			return valueobjects.Amount{}, domainErrors.ErrWalletNotFound
		}
		return valueobjects.Amount{}, err
	}

	if wallet.CreatedAt().After(asOf) {
		return valueobjects.Amount{}, domainErrors.ErrWalletNotFound
	}
	return valueobjects.Zero(), nil
}
