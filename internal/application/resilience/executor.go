package resilience

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
)

// Policy holds the retry budgets per failure class.
type Policy struct {
	OptimisticMax  int           // attempts for version conflicts
	OptimisticBase time.Duration // first backoff for conflicts
	OptimisticCap  time.Duration // backoff ceiling for conflicts
	TransientMax   int           // attempts for transient failures
	TransientBase  time.Duration
	TransientCap   time.Duration
}

// DefaultPolicy mirrors the documented defaults: 5 conflict attempts with a
// jittered exponential backoff from 10ms capped at 200ms, 3 transient
// attempts with a wider backoff.
func DefaultPolicy() Policy {
	return Policy{
		OptimisticMax:  5,
		OptimisticBase: 10 * time.Millisecond,
		OptimisticCap:  200 * time.Millisecond,
		TransientMax:   3,
		TransientBase:  100 * time.Millisecond,
		TransientCap:   time.Second,
	}
}

// Executor wraps every command handler invocation. It retries conflicts and
// transients within their budgets, surfaces permanent errors untouched, and
// feeds the degradation manager when a budget is exhausted.
type Executor struct {
	policy      Policy
	degradation *DegradationManager
	logger      *slog.Logger

	// attempt counters kept as plain atomics so tests and the degradation
	// signal do not depend on the metrics registry
	attempts    atomic.Int64
	exhaustions atomic.Int64
}

// NewExecutor creates an executor with the given policy.
func NewExecutor(policy Policy, degradation *DegradationManager, logger *slog.Logger) *Executor {
	return &Executor{
		policy:      policy,
		degradation: degradation,
		logger:      logger,
	}
}

// Attempts returns the total number of retried attempts so far.
func (e *Executor) Attempts() int64 { return e.attempts.Load() }

// Exhaustions returns the total number of exhausted budgets so far.
func (e *Executor) Exhaustions() int64 { return e.exhaustions.Load() }

// Execute runs fn under the retry policy. operation names the command for
// metrics; key identifies the contended resource (the wallet id).
func (e *Executor) Execute(ctx context.Context, operation, key string, fn func(ctx context.Context) error) error {
	if ok, kind := e.degradation.Allow(operation, key); !ok {
		degradationFastFailTotal.WithLabelValues(operation).Inc()
		return &domainErrors.RetriesExhaustedError{
			ExhaustedKind: kind,
			Operation:     operation,
			Attempts:      0,
			Err:           domainErrors.NewDomainError("DEGRADED", "operation fast-failed while degraded", nil),
		}
	}

	err := retry.Do(
		func() error { return e.retryConflicts(ctx, operation, key, fn) },
		retry.Attempts(uint(e.policy.TransientMax)),
		retry.Delay(e.policy.TransientBase),
		retry.MaxDelay(e.policy.TransientCap),
		retry.MaxJitter(e.policy.TransientBase),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.RetryIf(func(err error) bool { return Classify(err) == ClassTransient }),
		retry.OnRetry(func(n uint, err error) {
			e.attempts.Add(1)
			retryAttemptsTotal.WithLabelValues(operation, string(ClassTransient)).Inc()
			e.logger.Warn("retrying after transient failure",
				slog.String("operation", operation),
				slog.String("key", key),
				slog.Uint64("attempt", uint64(n)+1),
				slog.String("error", err.Error()),
			)
		}),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return nil
	}

	if Classify(err) == ClassTransient {
		e.exhaustions.Add(1)
		retriesExhaustedTotal.WithLabelValues(operation, string(ClassTransient)).Inc()
		e.degradation.Record(operation, key, domainErrors.KindTransientExhausted)
		return &domainErrors.RetriesExhaustedError{
			ExhaustedKind: domainErrors.KindTransientExhausted,
			Operation:     operation,
			Attempts:      e.policy.TransientMax,
			Err:           err,
		}
	}
	return err
}

// retryConflicts is the inner loop: version conflicts only.
func (e *Executor) retryConflicts(ctx context.Context, operation, key string, fn func(ctx context.Context) error) error {
	err := retry.Do(
		func() error { return fn(ctx) },
		retry.Attempts(uint(e.policy.OptimisticMax)),
		retry.Delay(e.policy.OptimisticBase),
		retry.MaxDelay(e.policy.OptimisticCap),
		retry.MaxJitter(e.policy.OptimisticBase),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.RetryIf(func(err error) bool { return Classify(err) == ClassConflict }),
		retry.OnRetry(func(n uint, err error) {
			e.attempts.Add(1)
			retryAttemptsTotal.WithLabelValues(operation, string(ClassConflict)).Inc()
		}),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return nil
	}

	if Classify(err) == ClassConflict {
		e.exhaustions.Add(1)
		retriesExhaustedTotal.WithLabelValues(operation, string(ClassConflict)).Inc()
		e.degradation.Record(operation, key, domainErrors.KindOptimisticLock)
		return &domainErrors.RetriesExhaustedError{
			ExhaustedKind: domainErrors.KindOptimisticLock,
			Operation:     operation,
			Attempts:      e.policy.OptimisticMax,
			Err:           err,
		}
	}
	return err
}
