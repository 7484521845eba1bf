// Package projection maintains the read side: projected wallet rows, the
// transaction-history snapshots, and the wallet cache.
//
// The projector consumes events at-least-once; the processed-event registry
// insert runs inside the same read-store transaction as the row updates, so
// an event is applied exactly once no matter how often it is delivered.
package projection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/entities"
	"github.com/velopay/walletd/internal/domain/events"
	"github.com/velopay/walletd/internal/domain/valueobjects"
)

var (
	appliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletd", Subsystem: "projector", Name: "events_applied_total",
		Help: "Events applied to the read side",
	}, []string{"event_type"})
	duplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletd", Subsystem: "projector", Name: "events_duplicate_total",
		Help: "Redelivered events skipped by the processed-event registry",
	})
)

// Projector applies events to the read store and the cache.
type Projector struct {
	readUow   ports.UnitOfWork
	readRepo  ports.ReadWalletRepository
	history   ports.HistoryRepository
	processed ports.ProcessedEventRepository
	cache     ports.WalletCache
	deadline  time.Duration
	logger    *slog.Logger
}

// NewProjector wires the projector. deadline bounds the handling of a single
// event; overruns surface as errors so the subscriber redelivers.
func NewProjector(
	readUow ports.UnitOfWork,
	readRepo ports.ReadWalletRepository,
	history ports.HistoryRepository,
	processed ports.ProcessedEventRepository,
	cache ports.WalletCache,
	deadline time.Duration,
	logger *slog.Logger,
) *Projector {
	if deadline <= 0 {
		deadline = 2 * time.Second
	}
	return &Projector{
		readUow:   readUow,
		readRepo:  readRepo,
		history:   history,
		processed: processed,
		cache:     cache,
		deadline:  deadline,
		logger:    logger,
	}
}

// Handle applies one event. Idempotent on event id.
func (p *Projector) Handle(ctx context.Context, env events.Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	var (
		duplicate bool
		snapshots []ports.WalletSnapshot
	)

	err := p.readUow.Execute(ctx, func(txCtx context.Context) error {
		first, err := p.processed.MarkProcessed(txCtx, env.EventID)
		if err != nil {
			return fmt.Errorf("processed-event registry: %w", err)
		}
		if !first {
			duplicate = true
			return nil
		}

		snapshots, err = p.apply(txCtx, env)
		return err
	})
	if err != nil {
		return err
	}

	if duplicate {
		duplicatesTotal.Inc()
		return nil
	}

	// Cache writes happen after commit; last-write-wins is acceptable
	// because projected updates are monotonic per wallet and the cache is
	// non-authoritative.
	for _, snap := range snapshots {
		if err := p.cache.Set(ctx, snap); err != nil {
			p.logger.Warn("cache update failed after projection",
				slog.String("wallet_id", snap.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	appliedTotal.WithLabelValues(env.EventType).Inc()
	return nil
}

// apply mutates the read store for one event and returns the wallet
// snapshots to push into the cache.
func (p *Projector) apply(ctx context.Context, env events.Envelope) ([]ports.WalletSnapshot, error) {
	switch env.EventType {
	case events.EventTypeWalletCreated:
		return p.applyWalletCreated(ctx, env)
	case events.EventTypeFundsDeposited:
		var payload events.FundsDeposited
		if err := env.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return p.applyBalanceChange(ctx, env, payload.WalletID, payload.TransactionID, payload.NewBalance.String())
	case events.EventTypeFundsWithdrawn:
		var payload events.FundsWithdrawn
		if err := env.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return p.applyBalanceChange(ctx, env, payload.WalletID, payload.TransactionID, payload.NewBalance.String())
	case events.EventTypeFundsTransferred:
		return p.applyTransfer(ctx, env)
	case events.EventTypeWalletFrozen, events.EventTypeWalletUnfrozen, events.EventTypeWalletClosed:
		return p.applyStatusChange(ctx, env)
	default:
		// Unknown event types from newer producers are skipped, not failed:
		// failing would wedge the whole aggregate stream.
		p.logger.Warn("skipping unknown event type", slog.String("event_type", env.EventType))
		return nil, nil
	}
}

func (p *Projector) applyWalletCreated(ctx context.Context, env events.Envelope) ([]ports.WalletSnapshot, error) {
	var payload events.WalletCreated
	if err := env.DecodePayload(&payload); err != nil {
		return nil, err
	}

	wallet := entities.ReconstructWallet(
		payload.WalletID, payload.UserID,
		valueobjects.Zero(), entities.WalletStatusActive, 0,
		payload.CreatedAt, payload.CreatedAt,
	)
	if err := p.readRepo.Upsert(ctx, wallet); err != nil {
		return nil, err
	}
	return []ports.WalletSnapshot{ports.NewWalletSnapshot(wallet)}, nil
}

// applyBalanceChange sets the projected balance to the post-operation value
// carried by the event and appends one history snapshot.
func (p *Projector) applyBalanceChange(ctx context.Context, env events.Envelope, walletID, transactionID uuid.UUID, newBalance string) ([]ports.WalletSnapshot, error) {
	wallet, err := p.projectBalance(ctx, walletID, newBalance, env.OccurredAt)
	if err != nil {
		return nil, err
	}

	if err := p.history.Append(ctx, ports.HistoryEntry{
		ID:            uuid.New(),
		WalletID:      walletID,
		Balance:       wallet.Balance(),
		TransactionID: transactionID,
		RecordedAt:    env.OccurredAt,
	}); err != nil {
		return nil, err
	}

	return []ports.WalletSnapshot{ports.NewWalletSnapshot(wallet)}, nil
}

func (p *Projector) applyTransfer(ctx context.Context, env events.Envelope) ([]ports.WalletSnapshot, error) {
	var payload events.FundsTransferred
	if err := env.DecodePayload(&payload); err != nil {
		return nil, err
	}

	// Both sides inside the same read-store transaction: readers never see
	// money in flight.
	source, err := p.projectBalance(ctx, payload.SourceWalletID, payload.SourceBalance.String(), env.OccurredAt)
	if err != nil {
		return nil, err
	}
	dest, err := p.projectBalance(ctx, payload.DestinationWalletID, payload.DestinationBalance.String(), env.OccurredAt)
	if err != nil {
		return nil, err
	}

	for _, w := range []*entities.Wallet{source, dest} {
		if err := p.history.Append(ctx, ports.HistoryEntry{
			ID:            uuid.New(),
			WalletID:      w.ID(),
			Balance:       w.Balance(),
			TransactionID: payload.TransactionID,
			RecordedAt:    env.OccurredAt,
		}); err != nil {
			return nil, err
		}
	}

	return []ports.WalletSnapshot{ports.NewWalletSnapshot(source), ports.NewWalletSnapshot(dest)}, nil
}

func (p *Projector) applyStatusChange(ctx context.Context, env events.Envelope) ([]ports.WalletSnapshot, error) {
	var payload events.WalletStatusChanged
	if err := env.DecodePayload(&payload); err != nil {
		return nil, err
	}

	wallet, err := p.readRepo.FindByID(ctx, payload.WalletID)
	if err != nil {
		return nil, err
	}

	wallet = entities.ReconstructWallet(
		wallet.ID(), wallet.UserID(), wallet.Balance(),
		entities.WalletStatus(payload.Status), wallet.Version()+1,
		wallet.CreatedAt(), env.OccurredAt,
	)
	if err := p.readRepo.Upsert(ctx, wallet); err != nil {
		return nil, err
	}
	return []ports.WalletSnapshot{ports.NewWalletSnapshot(wallet)}, nil
}

// projectBalance writes the post-operation balance onto the projected row.
func (p *Projector) projectBalance(ctx context.Context, walletID uuid.UUID, balance string, occurredAt time.Time) (*entities.Wallet, error) {
	wallet, err := p.readRepo.FindByID(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("projected wallet %s: %w", walletID, err)
	}

	amount, err := valueobjects.ParseAmount(balance)
	if err != nil {
		return nil, err
	}

	wallet = entities.ReconstructWallet(
		wallet.ID(), wallet.UserID(), amount,
		wallet.Status(), wallet.Version()+1,
		wallet.CreatedAt(), occurredAt,
	)
	if err := p.readRepo.Upsert(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}
