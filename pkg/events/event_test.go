package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewBaseEvent(t *testing.T) {
	before := time.Now().UTC()
	event := NewBaseEvent("fraud.detected", "TXN-001", "Transaction")
	after := time.Now().UTC()

	if event.EventID() == "" {
		t.Error("expected non-empty event ID")
	}

	if event.EventType() != "fraud.detected" {
		t.Errorf("expected event type %q, got %q", "fraud.detected", event.EventType())
	}

	if event.AggregateID() != "TXN-001" {
		t.Errorf("expected aggregate ID %q, got %q", "TXN-001", event.AggregateID())
	}

	if event.AggregateType() != "Transaction" {
		t.Errorf("expected aggregate type %q, got %q", "Transaction", event.AggregateType())
	}

	if event.OccurredAt().Before(before) || event.OccurredAt().After(after) {
		t.Errorf("expected occurredAt between %v and %v, got %v", before, after, event.OccurredAt())
	}
}

func TestBaseEventImplementsDomainEvent(t *testing.T) {
	var _ DomainEvent = BaseEvent{}
}

func TestBaseEventEnvelopeIsSerialized(t *testing.T) {
	type wrapped struct {
		BaseEvent
		Confidence string `json:"confidence"`
	}
	evt := wrapped{BaseEvent: NewBaseEvent("ledger.block.sealed", "7", "Block"), Confidence: "0.8"}

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	for _, key := range []string{"event_id", "event_type", "aggregate_id", "aggregate_type", "occurred_at", "confidence"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected key %q in serialized event", key)
		}
	}
}

func TestEventCollector(t *testing.T) {
	var c EventCollector
	c.Record(NewBaseEvent("a", "1", "X"))
	c.Record(NewBaseEvent("b", "2", "X"))

	if got := len(c.Events()); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}

	cleared := c.ClearEvents()
	if len(cleared) != 2 {
		t.Fatalf("expected 2 cleared events, got %d", len(cleared))
	}
	if cleared[0].EventType() != "a" || cleared[1].EventType() != "b" {
		t.Errorf("expected events in record order, got %s, %s", cleared[0].EventType(), cleared[1].EventType())
	}
	if len(c.Events()) != 0 {
		t.Error("expected collector to be empty after ClearEvents")
	}
}
