// Package ports - event publication contracts.
//
// Command handlers publish through the outbox: EventPublisher is implemented
// by the outbox repository, so "publishing" inside a handler is an insert in
// the same database transaction as the business change. The relay later
// moves rows to the EventSink (the broker). The direct-to-broker path that
// skips the outbox is deliberately not modeled.
package ports

import (
	"context"

	"github.com/velopay/walletd/internal/domain/events"
)

// EventPublisher records events durably alongside the business change.
//
// At-least-once delivery downstream: consumers must be idempotent.
type EventPublisher interface {
	// Publish stores one event. Inside a unit of work this joins the open
	// transaction; the event becomes visible to the relay at commit.
	Publish(ctx context.Context, env events.Envelope) error
}

// EventSink delivers envelope bytes to the messaging substrate.
// Implementations key the message by aggregate id so the broker preserves
// per-aggregate order.
type EventSink interface {
	Publish(ctx context.Context, env events.Envelope) error
}

// EventHandler processes one delivered event.
type EventHandler func(ctx context.Context, env events.Envelope) error

// EventSubscriber consumes events from the messaging substrate and feeds
// them to a handler. Used by the projector.
type EventSubscriber interface {
	// Start begins consumption and blocks until ctx is cancelled.
	Start(ctx context.Context, handler EventHandler) error
}
