package billing

import "encoding/json"

// Kind is the closed set of event kinds the engine understands. Provider
// event types outside this set decode to KindUnknown and are acknowledged
// as no-ops.
type Kind string

const (
	KindPaymentCompleted      Kind = "payment_completed"
	KindInvoicePaid           Kind = "invoice_paid"
	KindSubscriptionCancelled Kind = "subscription_cancelled"
	KindPayoutAccountUpdated  Kind = "payout_account_updated"
	KindUnknown               Kind = "unknown"
)

// Billing reasons carried by invoice_paid events. The first invoice of a
// subscription is already covered by payment_completed; only cycle renewals
// change state or earn commission.
const (
	ReasonSubscriptionCreate = "subscription_create"
	ReasonSubscriptionCycle  = "subscription_cycle"
)

// Event is a decoded provider event. ID is the provider-assigned event id
// used by the settlement ledger for deduplication.
type Event struct {
	ID   string
	Kind Kind
	Type string // raw provider type string

	// Customer is a loose account reference: an account id or an email.
	Customer string

	// invoice_paid only.
	BillingReason string

	// payout_account_updated only.
	PayoutAccountID  string
	DetailsSubmitted bool
	PayoutsEnabled   bool

	// Data is the raw event data object, kept for audit storage and
	// schema validation.
	Data json.RawMessage
}

// Renewal reports whether the event is an invoice payment for a billing
// cycle renewal (as opposed to the first invoice of a new subscription).
func (e *Event) Renewal() bool {
	return e.Kind == KindInvoicePaid && e.BillingReason == ReasonSubscriptionCycle
}
