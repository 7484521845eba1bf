package nats

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/domain/events"
)

// consumerName is the durable consumer shared by all projector instances.
const consumerName = "walletd-projector"

// Subscriber feeds delivered events to a handler through a fixed worker pool.
//
// Workers are partitioned by aggregate id: events of one wallet always land
// on the same worker and are handled serially, so the projector never applies
// two events of one aggregate concurrently. Failed events are nak'd and
// redelivered; the handler's dedup registry absorbs the repeats.
type Subscriber struct {
	js      jetstream.JetStream
	workers int
	logger  *slog.Logger
}

var _ ports.EventSubscriber = (*Subscriber)(nil)

// NewSubscriber creates a subscriber with the given worker count.
func NewSubscriber(js jetstream.JetStream, workers int, logger *slog.Logger) *Subscriber {
	if workers <= 0 {
		workers = 4
	}
	return &Subscriber{js: js, workers: workers, logger: logger}
}

// Start consumes the stream until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context, handler ports.EventHandler) error {
	cons, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: subjectWildcard,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    -1,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", consumerName, err)
	}

	partitions := make([]chan jetstream.Msg, s.workers)
	var wg sync.WaitGroup
	for i := range partitions {
		partitions[i] = make(chan jetstream.Msg, 64)
		wg.Add(1)
		go func(ch <-chan jetstream.Msg) {
			defer wg.Done()
			for msg := range ch {
				s.dispatch(ctx, handler, msg)
			}
		}(partitions[i])
	}

	consume, err := cons.Consume(func(msg jetstream.Msg) {
		select {
		case partitions[s.partition(msg.Subject())] <- msg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		for _, ch := range partitions {
			close(ch)
		}
		wg.Wait()
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.logger.Info("event subscriber started",
		slog.String("consumer", consumerName),
		slog.Int("workers", s.workers),
	)

	<-ctx.Done()
	consume.Stop()
	for _, ch := range partitions {
		close(ch)
	}
	wg.Wait()

	s.logger.Info("event subscriber stopped")
	return nil
}

// dispatch decodes, handles, and acks one message.
func (s *Subscriber) dispatch(ctx context.Context, handler ports.EventHandler, msg jetstream.Msg) {
	env, err := events.DecodeEnvelope(msg.Data())
	if err != nil {
		// Undecodable bytes never become decodable; drop with an ack so the
		// subject is not wedged.
		s.logger.Error("dropping undecodable event",
			slog.String("subject", msg.Subject()),
			slog.String("error", err.Error()),
		)
		_ = msg.Ack()
		return
	}

	if err := handler(ctx, env); err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("event handling failed, requesting redelivery",
				slog.String("event_id", env.EventID.String()),
				slog.String("event_type", env.EventType),
				slog.String("error", err.Error()),
			)
		}
		_ = msg.Nak()
		return
	}

	if err := msg.Ack(); err != nil && ctx.Err() == nil {
		s.logger.Warn("failed to ack event", slog.String("event_id", env.EventID.String()))
	}
}

// partition maps a subject (which embeds the aggregate id) to a worker.
func (s *Subscriber) partition(subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subject))
	return int(h.Sum32() % uint32(s.workers))
}
