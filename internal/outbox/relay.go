// Package outbox runs the background pump that moves committed outbox rows
// to the messaging substrate.
//
// Delivery is at-least-once: a crash between publish and the processed mark
// re-publishes the row on restart, and the projector deduplicates by event
// id. Multiple relay processes may run concurrently; the conditional
// processed_at update acts as the per-row lease, so a row is marked at most
// once even when two relays publish it.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/velopay/walletd/internal/application/ports"
)

var (
	publishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletd", Subsystem: "outbox", Name: "published_total",
		Help: "Outbox rows published and claimed",
	})
	publishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletd", Subsystem: "outbox", Name: "publish_failures_total",
		Help: "Outbox publish attempts that failed and will be retried",
	})
	claimsLostTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletd", Subsystem: "outbox", Name: "claims_lost_total",
		Help: "Rows published but already claimed by another relay",
	})
)

// Config tunes the relay loop.
type Config struct {
	Interval       time.Duration // pump period
	BatchSize      int           // rows per cycle
	PublishTimeout time.Duration // per-row publish deadline
	Retention      time.Duration // processed rows older than this are pruned
	CleanupEvery   time.Duration // prune period; zero disables pruning
}

// DefaultConfig mirrors the documented defaults.
func DefaultConfig() Config {
	return Config{
		Interval:       5 * time.Second,
		BatchSize:      100,
		PublishTimeout: 5 * time.Second,
		Retention:      7 * 24 * time.Hour,
		CleanupEvery:   time.Hour,
	}
}

// Relay is the outbox pump.
type Relay struct {
	repo   ports.OutboxRepository
	sink   ports.EventSink
	cfg    Config
	logger *slog.Logger
}

// NewRelay creates a relay over the given outbox and sink.
func NewRelay(repo ports.OutboxRepository, sink ports.EventSink, cfg Config, logger *slog.Logger) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	return &Relay{repo: repo, sink: sink, cfg: cfg, logger: logger}
}

// Run pumps until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	var cleanup <-chan time.Time
	if r.cfg.CleanupEvery > 0 {
		t := time.NewTicker(r.cfg.CleanupEvery)
		defer t.Stop()
		cleanup = t.C
	}

	r.logger.Info("outbox relay started",
		slog.Duration("interval", r.cfg.Interval),
		slog.Int("batch_size", r.cfg.BatchSize),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if err := r.Cycle(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("outbox cycle failed", slog.String("error", err.Error()))
			}
		case <-cleanup:
			deleted, err := r.repo.CleanupProcessed(ctx, r.cfg.Retention)
			if err != nil && ctx.Err() == nil {
				r.logger.Error("outbox cleanup failed", slog.String("error", err.Error()))
			} else if deleted > 0 {
				r.logger.Info("outbox cleanup", slog.Int64("deleted", deleted))
			}
		}
	}
}

// Cycle runs one pump iteration: fetch the oldest unprocessed rows, publish
// each keyed by aggregate id, and claim the row on ack. A publish failure
// skips the row; rows behind it for the same aggregate are held back too so
// per-aggregate order survives the retry.
func (r *Relay) Cycle(ctx context.Context) error {
	rows, err := r.repo.FindUnprocessed(ctx, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	stalled := make(map[uuid.UUID]struct{})

	for _, env := range rows {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, held := stalled[env.AggregateID]; held {
			continue
		}

		pubCtx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
		err := r.sink.Publish(pubCtx, env)
		cancel()

		if err != nil {
			publishFailuresTotal.Inc()
			stalled[env.AggregateID] = struct{}{}
			r.logger.Warn("outbox publish failed",
				slog.String("event_id", env.EventID.String()),
				slog.String("event_type", env.EventType),
				slog.String("error", err.Error()),
			)
			continue
		}

		claimed, err := r.repo.MarkProcessed(ctx, env.EventID)
		if err != nil {
			r.logger.Error("failed to mark outbox row processed",
				slog.String("event_id", env.EventID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !claimed {
			// Another relay won the lease; the duplicate publish is
			// absorbed downstream.
			claimsLostTotal.Inc()
			continue
		}
		publishedTotal.Inc()
	}

	return nil
}
