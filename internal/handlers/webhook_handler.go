package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/menuahora/backend/internal/billing"
	"github.com/menuahora/backend/internal/models"
	"github.com/menuahora/backend/internal/referral"
	"github.com/menuahora/backend/internal/services"
)

// SignatureHeader carries the provider's hex HMAC of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

// CustomerResolver resolves a loose customer reference (id or email) to an
// account. (nil, nil) means not found.
type CustomerResolver interface {
	Resolve(ctx context.Context, ref string) (*models.Account, error)
}

// StateApplier applies an event to the account's stored access/trial fields.
type StateApplier interface {
	Apply(ctx context.Context, acct *models.Account, ev *billing.Event) error
}

// CommissionCalculator decides whether the event earns a commission.
type CommissionCalculator interface {
	Calculate(ctx context.Context, referred *models.Account, ev *billing.Event) (*referral.Commission, error)
}

// CommissionSettler settles a commission via transfer or accrual.
type CommissionSettler interface {
	Settle(ctx context.Context, c *referral.Commission) error
}

// PayoutTracker handles payout-account onboarding updates.
type PayoutTracker interface {
	Apply(ctx context.Context, payoutAccountID string, detailsSubmitted, payoutsEnabled bool) error
}

// EventAuditStore keeps the audit copy of verified events.
type EventAuditStore interface {
	Insert(ctx context.Context, ev *models.WebhookEvent) error
}

// WebhookHandler is the single dispatcher for POST /webhooks/payments.
// Only a signature failure rejects the request; every internal failure is
// logged and absorbed into a 200 acknowledgement so the provider does not
// retry work that cannot succeed differently.
type WebhookHandler struct {
	Ingress   *billing.Ingress
	Audit     EventAuditStore
	Resolver  CustomerResolver
	State     StateApplier
	Calc      CommissionCalculator
	Settler   CommissionSettler
	Tracker   PayoutTracker
	Validator *services.Validator // optional; soft validation only
	Logger    *slog.Logger
}

// Handle processes one provider event per inbound request. Retry and
// redelivery are the provider's responsibility; the settlement ledger's
// unique index makes redelivery safe.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.Logger.Error("read webhook body", "error", err)
		http.Error(w, `{"error":"unreadable body"}`, http.StatusBadRequest)
		return
	}

	ev, err := h.Ingress.VerifyAndDecode(body, r.Header.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, billing.ErrBadSignature) {
			h.Logger.Warn("webhook signature rejected")
			http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
			return
		}
		// Signed but malformed: acknowledge so the provider stops
		// redelivering a payload we can never parse.
		h.Logger.Error("decode webhook event", "error", err)
		h.ack(w)
		return
	}

	if h.Validator != nil && ev.Kind != billing.KindUnknown {
		if verr := h.Validator.ValidateEvent(ev.Type, ev.Data); verr != nil {
			h.Logger.Warn("event schema validation failed (soft flag)", "event_id", ev.ID, "error", verr)
		}
	}

	if err := h.Audit.Insert(r.Context(), &models.WebhookEvent{
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		Payload:         ev.Data,
	}); err != nil {
		h.Logger.Error("audit insert failed", "event_id", ev.ID, "error", err)
	}

	switch ev.Kind {
	case billing.KindUnknown:
		h.Logger.Info("ignoring unrecognized event type", "event_id", ev.ID, "type", ev.Type)

	case billing.KindPayoutAccountUpdated:
		if err := h.Tracker.Apply(r.Context(), ev.PayoutAccountID, ev.DetailsSubmitted, ev.PayoutsEnabled); err != nil {
			h.Logger.Error("payout account update failed", "event_id", ev.ID, "error", err)
		}

	default:
		h.processAccountEvent(r.Context(), ev)
	}

	h.ack(w)
}

func (h *WebhookHandler) processAccountEvent(ctx context.Context, ev *billing.Event) {
	acct, err := h.Resolver.Resolve(ctx, ev.Customer)
	if err != nil {
		h.Logger.Error("resolve customer", "event_id", ev.ID, "error", err)
		return
	}
	if acct == nil {
		h.Logger.Warn("event customer does not match any account",
			"event_id", ev.ID, "customer", ev.Customer)
		return
	}

	if err := h.State.Apply(ctx, acct, ev); err != nil {
		h.Logger.Error("apply account state", "event_id", ev.ID, "account_id", acct.ID, "error", err)
		return
	}

	commission, err := h.Calc.Calculate(ctx, acct, ev)
	if err != nil {
		h.Logger.Error("calculate commission", "event_id", ev.ID, "error", err)
		return
	}
	if commission == nil {
		return
	}
	if err := h.Settler.Settle(ctx, commission); err != nil {
		h.Logger.Error("settle commission", "event_id", ev.ID, "error", err)
	}
}

func (h *WebhookHandler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"received": true})
}
