// Package queries implements the read-side query handlers.
// Queries never touch the write path; they read the cache and the read
// store, falling back to the write store only when a wallet has not been
// projected yet.
package queries

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/entities"
)

// GetWalletHandler answers current-wallet queries.
// Lookup order: cache, read store, write store. The cache is repopulated on
// the way out so the next read is fast.
type GetWalletHandler struct {
	cache      ports.WalletCache
	readRepo   ports.ReadWalletRepository
	writeRepo  ports.WalletRepository
	logger     *slog.Logger
}

// NewGetWalletHandler wires the handler.
func NewGetWalletHandler(
	cache ports.WalletCache,
	readRepo ports.ReadWalletRepository,
	writeRepo ports.WalletRepository,
	logger *slog.Logger,
) *GetWalletHandler {
	return &GetWalletHandler{
		cache:     cache,
		readRepo:  readRepo,
		writeRepo: writeRepo,
		logger:    logger,
	}
}

// Execute resolves the wallet snapshot.
func (h *GetWalletHandler) Execute(ctx context.Context, walletID uuid.UUID) (*ports.WalletSnapshot, error) {
	if snap, err := h.cache.Get(ctx, walletID); err != nil {
		// Cache trouble must not block reads.
		h.logger.Warn("wallet cache read failed", slog.String("wallet_id", walletID.String()), slog.String("error", err.Error()))
		cacheMissesTotal.Inc()
	} else if snap != nil {
		cacheHitsTotal.Inc()
		return snap, nil
	} else {
		cacheMissesTotal.Inc()
	}

	wallet, err := h.readRepo.FindByID(ctx, walletID)
	if errors.Is(err, domainErrors.ErrWalletNotFound) {
		// The projection may lag a fresh wallet; the write store is the
		// last resort, never the first stop.
		wallet, err = h.writeRepo.FindByID(ctx, walletID)
	}
	if err != nil {
		return nil, err
	}

	return h.refreshCache(ctx, wallet), nil
}

func (h *GetWalletHandler) refreshCache(ctx context.Context, wallet *entities.Wallet) *ports.WalletSnapshot {
	snap := ports.NewWalletSnapshot(wallet)
	if err := h.cache.Set(ctx, snap); err != nil {
		h.logger.Warn("wallet cache write failed", slog.String("wallet_id", snap.ID.String()), slog.String("error", err.Error()))
	}
	return &snap
}
