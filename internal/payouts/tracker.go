package payouts

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/menuahora/backend/internal/models"
)

// OnboardingStore is the account repository subset the tracker needs.
type OnboardingStore interface {
	GetByPayoutAccountID(ctx context.Context, payoutAccountID string) (*models.Account, error)
	SetPayoutOnboarded(ctx context.Context, id uuid.UUID) error
}

// Tracker updates a referrer's payout-eligibility flag when the provider
// confirms the connected account is fully onboarded. The flag only ever
// transitions false -> true; no revocation path exists.
type Tracker struct {
	accounts OnboardingStore
	log      *slog.Logger
}

func NewTracker(accounts OnboardingStore, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{accounts: accounts, log: log}
}

// Apply handles a payout-account update. Nothing happens unless the provider
// reports both identity verification and payouts enabled.
func (t *Tracker) Apply(ctx context.Context, payoutAccountID string, detailsSubmitted, payoutsEnabled bool) error {
	if !detailsSubmitted || !payoutsEnabled {
		return nil
	}
	acct, err := t.accounts.GetByPayoutAccountID(ctx, payoutAccountID)
	if err != nil {
		return err
	}
	if acct == nil {
		t.log.Warn("payout account update for unknown account", "payout_account_id", payoutAccountID)
		return nil
	}
	if acct.PayoutOnboarded {
		return nil
	}
	if err := t.accounts.SetPayoutOnboarded(ctx, acct.ID); err != nil {
		return err
	}
	t.log.Info("payout account onboarded", "account_id", acct.ID, "payout_account_id", payoutAccountID)
	return nil
}
