package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadSignature is returned when the webhook signature does not match the
// shared secret. It is the only error the webhook endpoint rejects on.
var ErrBadSignature = errors.New("webhook signature mismatch")

// Ingress authenticates and decodes inbound provider events. It never
// touches the account store.
type Ingress struct {
	secret []byte
}

func NewIngress(secret string) *Ingress {
	return &Ingress{secret: []byte(secret)}
}

// Sign computes the hex HMAC-SHA256 of body under the shared secret.
// Exposed so tests and outbound tooling can produce valid signatures.
func (i *Ingress) Sign(body []byte) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type eventEnvelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type eventData struct {
	Customer         string `json:"customer"`
	BillingReason    string `json:"billing_reason"`
	PayoutAccountID  string `json:"payout_account_id"`
	DetailsSubmitted bool   `json:"details_submitted"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
}

// VerifyAndDecode checks the signature over the raw body and decodes the
// event envelope. A signature mismatch returns ErrBadSignature before any
// of the payload is parsed.
func (i *Ingress) VerifyAndDecode(body []byte, signature string) (*Event, error) {
	if !hmac.Equal([]byte(i.Sign(body)), []byte(signature)) {
		return nil, ErrBadSignature
	}

	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	if env.ID == "" {
		return nil, errors.New("event missing provider id")
	}

	ev := &Event{
		ID:   env.ID,
		Kind: kindOf(env.Type),
		Type: env.Type,
		Data: env.Data,
	}
	if ev.Kind == KindUnknown {
		return ev, nil
	}

	var data eventData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", env.Type, err)
		}
	}
	ev.Customer = data.Customer
	ev.BillingReason = data.BillingReason
	ev.PayoutAccountID = data.PayoutAccountID
	ev.DetailsSubmitted = data.DetailsSubmitted
	ev.PayoutsEnabled = data.PayoutsEnabled
	return ev, nil
}

func kindOf(providerType string) Kind {
	switch providerType {
	case "payment.completed":
		return KindPaymentCompleted
	case "invoice.paid":
		return KindInvoicePaid
	case "subscription.cancelled":
		return KindSubscriptionCancelled
	case "payout_account.updated":
		return KindPayoutAccountUpdated
	default:
		return KindUnknown
	}
}
