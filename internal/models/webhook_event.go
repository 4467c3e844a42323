package models

import (
	"encoding/json"
	"time"
)

// WebhookEvent is an audit copy of a signature-verified provider event.
// It is NOT consulted for deduplication; the settlement ledger's unique
// index is the sole idempotency mechanism.
type WebhookEvent struct {
	ProviderEventID string          `json:"provider_event_id"`
	EventType       string          `json:"event_type"`
	Payload         json.RawMessage `json:"payload"`
	ReceivedAt      time.Time       `json:"received_at"`
}
