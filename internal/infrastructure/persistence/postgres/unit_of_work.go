package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/walletd/internal/application/ports"
	domainErrors "github.com/velopay/walletd/internal/domain/errors"
)

// UnitOfWork runs a function inside one database transaction. Repositories
// called within pick the transaction up from the context, so a handler's
// wallet update, transaction row, and outbox row commit or roll back as one.
//
// The same type serves both stores; construct one per pool.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork creates a unit of work over the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Execute runs fn inside a transaction. If the context already carries one,
// fn joins it instead of opening a nested transaction.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if hasTx(ctx) {
		return fn(ctx)
	}

	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(injectTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return domainErrors.NewConcurrencyError("transaction", "", err.Error())
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
