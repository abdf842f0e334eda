package queue

import (
	"context"
	"fmt"
	"time"

	"order_video/internal/model"
)

// ScanMessage is one QR scan as it travels through the outbox and Kafka.
type ScanMessage struct {
	EventID   string            `json:"event_id"`
	OrderID   string            `json:"order_id"`
	PhoneTag  string            `json:"phone_tag"`
	Outcome   model.ScanOutcome `json:"outcome"`
	UserAgent string            `json:"user_agent,omitempty"`
	ScannedAt time.Time         `json:"scanned_at"`
}

// Publisher accepts scan messages. Implementations: StreamOutbox (Redis),
// Producer (Kafka) and DirectSink (SQLite).
type Publisher interface {
	Publish(ctx context.Context, msg ScanMessage) error
}

// Validate rejects messages the consumer could not store.
func (m ScanMessage) Validate() error {
	if m.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if m.OrderID == "" {
		return fmt.Errorf("order_id is required")
	}
	switch m.Outcome {
	case model.ScanRedirected, model.ScanNotFound:
	default:
		return fmt.Errorf("unknown outcome %q", m.Outcome)
	}
	if m.ScannedAt.IsZero() {
		return fmt.Errorf("scanned_at is required")
	}
	return nil
}

// Event converts the message to its stored form.
func (m ScanMessage) Event() model.ScanEvent {
	return model.ScanEvent{
		EventID:   m.EventID,
		OrderID:   m.OrderID,
		PhoneTag:  m.PhoneTag,
		Outcome:   m.Outcome,
		UserAgent: truncateUA(m.UserAgent),
		ScannedAt: m.ScannedAt.UTC(),
	}
}

// streamValues is the flat field map written to the Redis stream.
func (m ScanMessage) streamValues() map[string]any {
	return map[string]any{
		"event_id":   m.EventID,
		"order_id":   m.OrderID,
		"phone_tag":  m.PhoneTag,
		"outcome":    string(m.Outcome),
		"user_agent": m.UserAgent,
		"scanned_at": m.ScannedAt.UTC().Format(time.RFC3339Nano),
	}
}

func truncateUA(ua string) string {
	if len(ua) > 255 {
		return ua[:255]
	}
	return ua
}
