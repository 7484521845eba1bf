package outbox

import (
	"context"

	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/events"
)

// Publisher adapts the outbox repository to the EventPublisher port: a
// publish from a command handler is an outbox insert in the handler's open
// transaction.
type Publisher struct {
	repo ports.OutboxRepository
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher creates the outbox-backed publisher.
func NewPublisher(repo ports.OutboxRepository) *Publisher {
	return &Publisher{repo: repo}
}

// Publish stores the envelope as an unprocessed outbox row.
func (p *Publisher) Publish(ctx context.Context, env events.Envelope) error {
	return p.repo.Save(ctx, env)
}
