package referral

import (
	"context"
	"log/slog"

	"github.com/menuahora/backend/internal/billing"
	"github.com/menuahora/backend/internal/models"
)

// DefaultCommissionCents is the fixed reward per qualifying payment.
const DefaultCommissionCents int64 = 3500

// Commission is a request to credit a referrer for one qualifying payment,
// tagged with the triggering event id.
type Commission struct {
	SourceEventID string
	Referrer      *models.Account
	Referred      *models.Account
	AmountCents   int64
}

// ReferrerLookup resolves referral codes to referrer accounts. (nil, nil)
// means not found.
type ReferrerLookup interface {
	ByUsername(ctx context.Context, username string) (*models.Account, error)
}

// Calculator decides whether an event earns a referral commission, for whom,
// and how much.
type Calculator struct {
	resolver    ReferrerLookup
	amountCents int64
	log         *slog.Logger
}

func NewCalculator(resolver ReferrerLookup, amountCents int64, log *slog.Logger) *Calculator {
	if amountCents <= 0 {
		amountCents = DefaultCommissionCents
	}
	if log == nil {
		log = slog.Default()
	}
	return &Calculator{resolver: resolver, amountCents: amountCents, log: log}
}

// Calculate returns the commission owed for the event, or (nil, nil) when
// nothing is owed. Only payment_completed and cycle-renewal invoice_paid
// events qualify; the first invoice of a subscription is excluded because
// payment_completed already paid for that same charge.
func (c *Calculator) Calculate(ctx context.Context, referred *models.Account, ev *billing.Event) (*Commission, error) {
	if ev.Kind != billing.KindPaymentCompleted && !ev.Renewal() {
		return nil, nil
	}
	if referred.ReferredByCode == nil || *referred.ReferredByCode == "" {
		return nil, nil
	}

	referrer, err := c.resolver.ByUsername(ctx, *referred.ReferredByCode)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		c.log.Info("referral code does not resolve, skipping commission",
			"code", *referred.ReferredByCode, "event_id", ev.ID)
		return nil, nil
	}
	if !referrer.HasAccess {
		c.log.Info("referrer is not an active subscriber, skipping commission",
			"referrer_id", referrer.ID, "event_id", ev.ID)
		return nil, nil
	}

	return &Commission{
		SourceEventID: ev.ID,
		Referrer:      referrer,
		Referred:      referred,
		AmountCents:   c.amountCents,
	}, nil
}
