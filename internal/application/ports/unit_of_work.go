// Package ports - UnitOfWork for transaction boundaries.
//
// One UnitOfWork.Execute call is one database transaction: the balance
// update, the transaction row, and the outbox row commit together or not at
// all. Repositories inside fn must use the context they are handed.
package ports

import "context"

// UnitOfWork runs a function inside a single database transaction.
type UnitOfWork interface {
	// Execute begins a transaction, injects it into the context, and runs
	// fn. A nil return commits; an error rolls back and is returned.
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}
