package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/events"
)

// Sink publishes event envelopes to JetStream. Used by the outbox relay; the
// command path never talks to the broker directly.
type Sink struct {
	js jetstream.JetStream
}

var _ ports.EventSink = (*Sink)(nil)

// NewSink creates a sink over a JetStream handle.
func NewSink(js jetstream.JetStream) *Sink {
	return &Sink{js: js}
}

// Publish sends the envelope keyed by aggregate id and waits for the stream
// ack. The subject embeds the aggregate id so all events of one wallet land
// on one ordered subject.
func (s *Sink) Publish(ctx context.Context, env events.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}

	msg := &nats.Msg{
		Subject: subjectPrefix + env.AggregateID.String(),
		Header: nats.Header{
			"Nats-Msg-Id": []string{env.EventID.String()},
		},
		Data: data,
	}

	if _, err := s.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", env.EventType, err)
	}
	return nil
}
