package models

import (
	"time"

	"github.com/google/uuid"
)

// Settlement record status enums.
const (
	SettlementTransferred = "transferred"
	SettlementAccrued     = "accrued"
)

// SettlementRecord is an append-only ledger entry. One row exists per
// (source_event_id, referrer_account_id) pair; the unique index on that pair
// is the idempotency guard against duplicate event delivery.
type SettlementRecord struct {
	ID                uuid.UUID `json:"id"`
	SourceEventID     string    `json:"source_event_id"`
	ReferrerAccountID uuid.UUID `json:"referrer_account_id"`
	ReferredAccountID uuid.UUID `json:"referred_account_id"`
	AmountCents       int64     `json:"amount_cents"`
	Status            string    `json:"status"`
	TransferID        *string   `json:"transfer_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
