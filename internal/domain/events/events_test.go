package events

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/velopay/walletd/internal/domain/valueobjects"
)

func TestNewFundsDeposited(t *testing.T) {
	walletID := uuid.New()
	txID := uuid.New()

	env, err := NewFundsDeposited(walletID, txID, valueobjects.MustAmount("25.50"), "ref-1", valueobjects.MustAmount("125.50"))
	if err != nil {
		t.Fatalf("NewFundsDeposited error: %v", err)
	}

	if env.EventID == uuid.Nil {
		t.Error("event id should be set")
	}
	if env.EventType != EventTypeFundsDeposited {
		t.Errorf("event type = %s, want %s", env.EventType, EventTypeFundsDeposited)
	}
	if env.AggregateType != AggregateTypeWallet {
		t.Errorf("aggregate type = %s, want %s", env.AggregateType, AggregateTypeWallet)
	}
	if env.AggregateID != walletID {
		t.Errorf("aggregate id = %s, want %s", env.AggregateID, walletID)
	}
	if env.Version != SchemaVersion {
		t.Errorf("version = %d, want %d", env.Version, SchemaVersion)
	}

	var payload FundsDeposited
	if err := env.DecodePayload(&payload); err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}
	if payload.TransactionID != txID {
		t.Errorf("transaction id = %s, want %s", payload.TransactionID, txID)
	}
	if payload.NewBalance.String() != "125.5000" {
		t.Errorf("new balance = %s, want 125.5000", payload.NewBalance)
	}
}

func TestNewFundsTransferred_AggregateIsSource(t *testing.T) {
	source := uuid.New()
	dest := uuid.New()

	env, err := NewFundsTransferred(source, dest, uuid.New(), valueobjects.MustAmount("10"), "ref-t",
		valueobjects.MustAmount("90"), valueobjects.MustAmount("110"))
	if err != nil {
		t.Fatalf("NewFundsTransferred error: %v", err)
	}

	if env.AggregateID != source {
		t.Errorf("aggregate id = %s, want source %s", env.AggregateID, source)
	}

	var payload FundsTransferred
	if err := env.DecodePayload(&payload); err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}
	if payload.SourceWalletID != source || payload.DestinationWalletID != dest {
		t.Error("transfer endpoints not preserved")
	}
	if payload.SourceBalance.String() != "90.0000" || payload.DestinationBalance.String() != "110.0000" {
		t.Errorf("balances = %s / %s", payload.SourceBalance, payload.DestinationBalance)
	}
}

func TestEnvelope_EncodeDecodeRoundTrip(t *testing.T) {
	walletID := uuid.New()
	env, err := NewWalletCreated(walletID, uuid.New(), time.Now().UTC())
	if err != nil {
		t.Fatalf("NewWalletCreated error: %v", err)
	}

	data, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	back, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope error: %v", err)
	}
	if back.EventID != env.EventID || back.EventType != env.EventType || back.AggregateID != env.AggregateID {
		t.Error("envelope fields not preserved through round trip")
	}

	var payload WalletCreated
	if err := back.DecodePayload(&payload); err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}
	if payload.WalletID != walletID {
		t.Errorf("wallet id = %s, want %s", payload.WalletID, walletID)
	}
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	if _, err := DecodeEnvelope([]byte("not json")); err == nil {
		t.Error("expected error for malformed bytes")
	}

	// Valid JSON but missing identity fields.
	if _, err := DecodeEnvelope([]byte(`{"payload":{}}`)); err == nil {
		t.Error("expected error for missing event_id and event_type")
	} else if !strings.Contains(err.Error(), "missing event_id") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDecodeEnvelope_IgnoresUnknownFields(t *testing.T) {
	env, err := NewWalletStatusChanged(EventTypeWalletFrozen, uuid.New(), "FROZEN")
	if err != nil {
		t.Fatalf("NewWalletStatusChanged error: %v", err)
	}
	data, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	// A newer producer may add fields; older consumers must not break.
	extended := strings.Replace(string(data), `{"event_id"`, `{"trace_id":"abc","event_id"`, 1)

	back, err := DecodeEnvelope([]byte(extended))
	if err != nil {
		t.Fatalf("DecodeEnvelope error: %v", err)
	}
	if back.EventType != EventTypeWalletFrozen {
		t.Errorf("event type = %s, want %s", back.EventType, EventTypeWalletFrozen)
	}
}
