package billing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/menuahora/backend/internal/models"
)

// AccountAccessWriter is the minimal account repository interface the state
// machine needs. Writes are pure field overwrites, never increments, so a
// replayed event leaves the account exactly as a single delivery would.
type AccountAccessWriter interface {
	SetAccess(ctx context.Context, id uuid.UUID, hasAccess, clearTrial bool) error
}

// StateMachine applies payment and subscription events to an account's
// stored access/trial fields.
type StateMachine struct {
	accounts AccountAccessWriter
	log      *slog.Logger
}

func NewStateMachine(accounts AccountAccessWriter, log *slog.Logger) *StateMachine {
	if log == nil {
		log = slog.Default()
	}
	return &StateMachine{accounts: accounts, log: log}
}

// Apply mutates the stored fields for the given event:
//
//   - payment_completed: grant access; a trial in progress is superseded by
//     payment and never resumed.
//   - invoice_paid (cycle renewal): grant access. The first invoice of a
//     subscription is a no-op here — payment_completed already handled it.
//   - subscription_cancelled: revoke access, trial fields untouched.
//
// Unknown and payout-account kinds are no-ops.
func (m *StateMachine) Apply(ctx context.Context, acct *models.Account, ev *Event) error {
	switch ev.Kind {
	case KindPaymentCompleted:
		if err := m.accounts.SetAccess(ctx, acct.ID, true, true); err != nil {
			return err
		}
		acct.HasAccess = true
		acct.IsOnTrial = false
		m.log.Info("access granted", "account_id", acct.ID, "event_id", ev.ID)

	case KindInvoicePaid:
		if !ev.Renewal() {
			// First invoice: already counted via payment_completed.
			return nil
		}
		if err := m.accounts.SetAccess(ctx, acct.ID, true, false); err != nil {
			return err
		}
		acct.HasAccess = true
		m.log.Info("access refreshed on renewal", "account_id", acct.ID, "event_id", ev.ID)

	case KindSubscriptionCancelled:
		if err := m.accounts.SetAccess(ctx, acct.ID, false, false); err != nil {
			return err
		}
		acct.HasAccess = false
		m.log.Info("access revoked", "account_id", acct.ID, "event_id", ev.ID)
	}
	return nil
}
