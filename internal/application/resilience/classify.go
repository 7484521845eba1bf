// Package resilience wraps command execution with retry policies and
// degradation signals.
//
// Failure classes:
//   - conflict: the optimistic version check lost a race; retried with a
//     tight jittered backoff because the contention window is short
//   - transient: connection resets, timeouts, dependency unavailability;
//     retried with a wider backoff
//   - permanent: domain outcomes (validation, insufficient funds, not found,
//     duplicate reference); never retried
//
// Retrying is safe because the handlers are idempotent by reference id: a
// retry whose prior attempt actually committed observes the completed
// transaction and returns it without re-applying.
package resilience

import (
	"context"
	"errors"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
)

// FailureClass labels an error for retry decisions and metrics.
type FailureClass string

const (
	ClassConflict  FailureClass = "conflict"
	ClassTransient FailureClass = "transient"
	ClassPermanent FailureClass = "permanent"
)

// Classify maps an error to its failure class.
func Classify(err error) FailureClass {
	switch {
	case err == nil:
		return ""
	case domainErrors.IsConcurrencyError(err):
		return ClassConflict
	case domainErrors.IsPermanent(err):
		return ClassPermanent
	case errors.Is(err, context.Canceled):
		// Caller went away; nothing to retry for.
		return ClassPermanent
	}

	// An exhausted retry budget is a final verdict, not a fresh failure.
	var re *domainErrors.RetriesExhaustedError
	if errors.As(err, &re) {
		return ClassPermanent
	}

	// Deadline overruns and everything unclassified count as transient;
	// the attempt already released its write-store transaction.
	return ClassTransient
}
