package ports

import "github.com/velopay/walletd/internal/domain/entities"

// NewWalletSnapshot converts a wallet entity into its cached representation.
func NewWalletSnapshot(w *entities.Wallet) WalletSnapshot {
	return WalletSnapshot{
		ID:        w.ID(),
		UserID:    w.UserID(),
		Balance:   w.Balance().String(),
		Status:    string(w.Status()),
		Version:   w.Version(),
		CreatedAt: w.CreatedAt(),
		UpdatedAt: w.UpdatedAt(),
	}
}
