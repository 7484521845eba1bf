package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/entities"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ListTransactionsHandler lists a wallet's transactions for reconciliation.
// Transactions are immutable once committed, so reading them from the write
// store does not interfere with the command path.
type ListTransactionsHandler struct {
	txRepo ports.TransactionRepository
}

// NewListTransactionsHandler wires the handler.
func NewListTransactionsHandler(txRepo ports.TransactionRepository) *ListTransactionsHandler {
	return &ListTransactionsHandler{txRepo: txRepo}
}

// Execute returns up to limit transactions, newest first.
func (h *ListTransactionsHandler) Execute(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.Transaction, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return h.txRepo.FindByWalletID(ctx, walletID, offset, limit)
}
