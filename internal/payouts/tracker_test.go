package payouts

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/menuahora/backend/internal/models"
)

type mockOnboarding struct {
	accounts map[string]*models.Account
	updates  int
}

func (m *mockOnboarding) GetByPayoutAccountID(_ context.Context, payoutAccountID string) (*models.Account, error) {
	return m.accounts[payoutAccountID], nil
}

func (m *mockOnboarding) SetPayoutOnboarded(_ context.Context, id uuid.UUID) error {
	for _, a := range m.accounts {
		if a.ID == id {
			a.PayoutOnboarded = true
			m.updates++
			return nil
		}
	}
	return nil
}

func TestTrackerMarksOnboarded(t *testing.T) {
	payoutID := "acct_9"
	acct := &models.Account{ID: uuid.New(), PayoutAccountID: &payoutID}
	store := &mockOnboarding{accounts: map[string]*models.Account{payoutID: acct}}
	tr := NewTracker(store, nil)

	if err := tr.Apply(context.Background(), payoutID, true, true); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !acct.PayoutOnboarded {
		t.Error("account should be marked onboarded")
	}
}

func TestTrackerRequiresBothFlags(t *testing.T) {
	payoutID := "acct_9"
	acct := &models.Account{ID: uuid.New(), PayoutAccountID: &payoutID}
	store := &mockOnboarding{accounts: map[string]*models.Account{payoutID: acct}}
	tr := NewTracker(store, nil)

	ctx := context.Background()
	if err := tr.Apply(ctx, payoutID, true, false); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := tr.Apply(ctx, payoutID, false, true); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if acct.PayoutOnboarded {
		t.Error("partial onboarding must not set the flag")
	}
}

func TestTrackerUnknownAccountIsSilent(t *testing.T) {
	store := &mockOnboarding{accounts: map[string]*models.Account{}}
	tr := NewTracker(store, nil)

	if err := tr.Apply(context.Background(), "acct_missing", true, true); err != nil {
		t.Fatalf("unknown payout account must not error: %v", err)
	}
}

func TestTrackerAlreadyOnboardedIsNoop(t *testing.T) {
	payoutID := "acct_9"
	acct := &models.Account{ID: uuid.New(), PayoutAccountID: &payoutID, PayoutOnboarded: true}
	store := &mockOnboarding{accounts: map[string]*models.Account{payoutID: acct}}
	tr := NewTracker(store, nil)

	if err := tr.Apply(context.Background(), payoutID, true, true); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if store.updates != 0 {
		t.Errorf("expected no writes, got %d", store.updates)
	}
}
