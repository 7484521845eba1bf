// Package errors defines domain-specific error types.
// Using typed errors (instead of strings) allows clients to handle specific cases.
//
// Pattern: Sentinel Errors + Custom Error Types + Kind classification
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the boundary. The HTTP adapter maps kinds to
// status codes; the resilience wrapper uses kinds to decide retryability.
type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindWalletNotFound     Kind = "WALLET_NOT_FOUND"
	KindWalletNotActive    Kind = "WALLET_NOT_ACTIVE"
	KindWalletNotEmpty     Kind = "WALLET_NOT_EMPTY"
	KindInsufficientFunds  Kind = "INSUFFICIENT_FUNDS"
	KindDuplicateReference Kind = "DUPLICATE_REFERENCE"
	KindOptimisticLock     Kind = "OPTIMISTIC_LOCK_EXHAUSTED"
	KindTransientExhausted Kind = "TRANSIENT_FAILURE_EXHAUSTED"
	KindInternal           Kind = "INTERNAL"
)

// Common sentinel errors for domain validation.
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletNotActive     = errors.New("wallet is not active")
	ErrWalletNotEmpty      = errors.New("wallet balance must be zero")
	ErrWalletClosed        = errors.New("wallet is closed")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrDuplicateReference  = errors.New("duplicate reference with different payload")
	ErrSameWalletTransfer  = errors.New("source and destination wallets are the same")
	ErrInvalidStatusChange = errors.New("invalid wallet status transition")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrWalletAlreadyExists = errors.New("wallet already exists for user")
)

// DomainError wraps an error with a machine-readable code and message.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// ConcurrencyError is returned when an optimistic version check fails.
// The resilience wrapper retries these; they are never surfaced directly.
type ConcurrencyError struct {
	EntityType string
	EntityID   string
	Message    string
}

// Error implements the error interface.
func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrency error on %s [%s]: %s", e.EntityType, e.EntityID, e.Message)
}

// NewConcurrencyError creates a new concurrency error.
func NewConcurrencyError(entityType, entityID, message string) *ConcurrencyError {
	return &ConcurrencyError{EntityType: entityType, EntityID: entityID, Message: message}
}

// RetriesExhaustedError is produced by the resilience wrapper when a retry
// budget runs out. Kind is KindOptimisticLock or KindTransientExhausted.
type RetriesExhaustedError struct {
	ExhaustedKind Kind
	Operation     string
	Attempts      int
	Err           error
}

// Error implements the error interface.
func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("[%s] %s exhausted after %d attempts: %v", e.ExhaustedKind, e.Operation, e.Attempts, e.Err)
}

// Unwrap implements error unwrapping.
func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

// IsConcurrencyError checks if an error is an optimistic lock conflict.
func IsConcurrencyError(err error) bool {
	var ce *ConcurrencyError
	return errors.As(err, &ce)
}

// IsValidationError checks if an error is a field validation error.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// KindOf classifies an error into a Kind for the boundary.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWalletNotFound), errors.Is(err, ErrTransactionNotFound):
		return KindWalletNotFound
	case errors.Is(err, ErrWalletNotActive), errors.Is(err, ErrWalletClosed), errors.Is(err, ErrInvalidStatusChange):
		return KindWalletNotActive
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrDuplicateReference):
		return KindDuplicateReference
	case errors.Is(err, ErrWalletNotEmpty):
		return KindWalletNotEmpty
	case errors.Is(err, ErrSameWalletTransfer), errors.Is(err, ErrWalletAlreadyExists),
		IsValidationError(err):
		return KindValidation
	}

	var re *RetriesExhaustedError
	if errors.As(err, &re) {
		return re.ExhaustedKind
	}

	return KindInternal
}

// IsPermanent reports whether an error must never be retried.
// Domain conflicts and validation failures are facts, not glitches.
func IsPermanent(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindWalletNotFound, KindWalletNotActive,
		KindWalletNotEmpty, KindInsufficientFunds, KindDuplicateReference:
		return true
	}
	return false
}
