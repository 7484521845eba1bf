// Package nats implements the event sink and subscriber on NATS JetStream.
//
// One stream holds all wallet events; the subject carries the aggregate id,
// so JetStream preserves per-aggregate publish order. The Nats-Msg-Id header
// is the event id, giving broker-side dedup inside the duplicate window on
// top of the projector's own registry.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the JetStream stream holding wallet events.
	StreamName = "WALLET_EVENTS"

	// subjectPrefix is completed with the aggregate id per message.
	subjectPrefix = "wallet.events."

	// subjectWildcard covers every aggregate.
	subjectWildcard = subjectPrefix + ">"
)

// Connect dials NATS with sane reconnect behavior.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// EnsureStream creates or updates the wallet event stream and returns a
// JetStream handle.
func EnsureStream(ctx context.Context, nc *nats.Conn) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{subjectWildcard},
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
		MaxAge:    7 * 24 * time.Hour,
		// Window for Nats-Msg-Id dedup of relay double-publishes.
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stream %s: %w", StreamName, err)
	}
	return js, nil
}
