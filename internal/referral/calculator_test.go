package referral

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/menuahora/backend/internal/billing"
	"github.com/menuahora/backend/internal/models"
)

type mockReferrers struct {
	byUsername map[string]*models.Account
}

func (m *mockReferrers) ByUsername(_ context.Context, username string) (*models.Account, error) {
	return m.byUsername[username], nil
}

func strPtr(s string) *string { return &s }

func activeReferrer(username string) *models.Account {
	return &models.Account{ID: uuid.New(), Username: username, HasAccess: true}
}

func referredBy(code string) *models.Account {
	return &models.Account{ID: uuid.New(), ReferredByCode: strPtr(code)}
}

func TestCalculatePaymentCompleted(t *testing.T) {
	referrer := activeReferrer("tacos-maria")
	calc := NewCalculator(&mockReferrers{byUsername: map[string]*models.Account{"tacos-maria": referrer}}, 3500, nil)

	referred := referredBy("tacos-maria")
	ev := &billing.Event{ID: "evt_1", Kind: billing.KindPaymentCompleted}

	c, err := calc.Calculate(context.Background(), referred, ev)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if c == nil {
		t.Fatal("expected a commission")
	}
	if c.AmountCents != 3500 {
		t.Errorf("amount: got %d, want 3500", c.AmountCents)
	}
	if c.Referrer.ID != referrer.ID || c.SourceEventID != "evt_1" {
		t.Errorf("commission wiring wrong: %+v", c)
	}
}

func TestCalculateRenewalQualifies(t *testing.T) {
	referrer := activeReferrer("tacos-maria")
	calc := NewCalculator(&mockReferrers{byUsername: map[string]*models.Account{"tacos-maria": referrer}}, 3500, nil)

	ev := &billing.Event{ID: "evt_2", Kind: billing.KindInvoicePaid, BillingReason: billing.ReasonSubscriptionCycle}
	c, err := calc.Calculate(context.Background(), referredBy("tacos-maria"), ev)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if c == nil {
		t.Fatal("renewal invoice should earn a commission")
	}
}

func TestCalculateFirstInvoiceDoesNot(t *testing.T) {
	referrer := activeReferrer("tacos-maria")
	calc := NewCalculator(&mockReferrers{byUsername: map[string]*models.Account{"tacos-maria": referrer}}, 3500, nil)

	ev := &billing.Event{ID: "evt_3", Kind: billing.KindInvoicePaid, BillingReason: billing.ReasonSubscriptionCreate}
	c, err := calc.Calculate(context.Background(), referredBy("tacos-maria"), ev)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if c != nil {
		t.Error("first invoice must not double-pay the commission already earned by payment_completed")
	}
}

func TestCalculateNoReferralCode(t *testing.T) {
	calc := NewCalculator(&mockReferrers{byUsername: map[string]*models.Account{}}, 3500, nil)

	c, err := calc.Calculate(context.Background(), &models.Account{ID: uuid.New()},
		&billing.Event{ID: "evt_4", Kind: billing.KindPaymentCompleted})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if c != nil {
		t.Error("account without a referral code earns no one a commission")
	}
}

func TestCalculateReferrerMissing(t *testing.T) {
	calc := NewCalculator(&mockReferrers{byUsername: map[string]*models.Account{}}, 3500, nil)

	c, err := calc.Calculate(context.Background(), referredBy("deleted-business"),
		&billing.Event{ID: "evt_5", Kind: billing.KindPaymentCompleted})
	if err != nil {
		t.Fatalf("missing referrer must be silent, got: %v", err)
	}
	if c != nil {
		t.Error("unresolvable referral code must produce no commission")
	}
}

func TestCalculateInactiveReferrer(t *testing.T) {
	inactive := &models.Account{ID: uuid.New(), Username: "tacos-maria", HasAccess: false}
	calc := NewCalculator(&mockReferrers{byUsername: map[string]*models.Account{"tacos-maria": inactive}}, 3500, nil)

	c, err := calc.Calculate(context.Background(), referredBy("tacos-maria"),
		&billing.Event{ID: "evt_6", Kind: billing.KindPaymentCompleted})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if c != nil {
		t.Error("a referrer without access earns nothing")
	}
}
