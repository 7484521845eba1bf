package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/entities"
	domainErrors "github.com/velopay/walletd/internal/domain/errors"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

// TransactionRepository persists transaction records in the write store.
// Rows are immutable once inserted; there is no update path.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TransactionRepository = (*TransactionRepository)(nil)

// NewTransactionRepository creates a transaction repository over the write pool.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Save inserts a transaction row. A unique violation on
// (wallet_id, reference_id) means a concurrent request won the insert for
// the same reference. It surfaces as a retryable conflict: the executor
// re-enters the handler, whose replay lookup then resolves an equal amount
// to the committed transaction and a different amount to DUPLICATE_REFERENCE.
func (r *TransactionRepository) Save(ctx context.Context, tx *entities.Transaction) error {
	query := `
		INSERT INTO transactions
			(id, wallet_id, destination_wallet_id, type, amount, reference_id, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		tx.ID(), tx.WalletID(), tx.DestinationWalletID(),
		string(tx.Type()), tx.Amount().String(), tx.ReferenceID(),
		string(tx.Status()), tx.Description(), tx.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "transactions_wallet_id_reference_id_key") {
			return domainErrors.NewConcurrencyError("transaction", tx.ReferenceID(),
				"reference committed concurrently")
		}
		if isForeignKeyViolation(err) {
			return domainErrors.ErrWalletNotFound
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// FindByID loads a transaction by id.
func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	query := transactionSelect + ` WHERE id = $1`

	tx, err := scanTransaction(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// FindByReference looks a transaction up by its idempotency key.
// Returns (nil, nil) when the reference has never been used.
func (r *TransactionRepository) FindByReference(ctx context.Context, walletID uuid.UUID, referenceID string) (*entities.Transaction, error) {
	query := transactionSelect + ` WHERE wallet_id = $1 AND reference_id = $2`

	tx, err := scanTransaction(conn(ctx, r.pool).QueryRow(ctx, query, walletID, referenceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return tx, nil
}

// FindByWalletID lists a wallet's transactions, newest first.
func (r *TransactionRepository) FindByWalletID(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.Transaction, error) {
	query := transactionSelect + `
		WHERE wallet_id = $1 OR destination_wallet_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`

	rows, err := conn(ctx, r.pool).Query(ctx, query, walletID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*entities.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

const transactionSelect = `
	SELECT id, wallet_id, destination_wallet_id, type, amount::text, reference_id, status, description, created_at
	FROM transactions`

func scanTransaction(row pgx.Row) (*entities.Transaction, error) {
	var (
		id, walletID  uuid.UUID
		destinationID *uuid.UUID
		txType        string
		amountStr     string
		referenceID   string
		status        string
		description   string
		createdAt     time.Time
	)

	err := row.Scan(&id, &walletID, &destinationID, &txType, &amountStr,
		&referenceID, &status, &description, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	amount, err := valueobjects.ParseAmount(amountStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount for transaction %s: %w", id, err)
	}

	return entities.ReconstructTransaction(id, walletID, destinationID,
		entities.TransactionType(txType), amount, referenceID,
		entities.TransactionStatus(status), description, createdAt), nil
}
