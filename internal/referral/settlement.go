package referral

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/menuahora/backend/internal/models"
	"github.com/menuahora/backend/internal/payouts"
	"github.com/menuahora/backend/internal/repository"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Ledger is the settlement-record repository subset the settler needs. The
// unique (source_event_id, referrer_account_id) index behind InsertTx is the
// single idempotency mechanism in the engine; no other component
// duplicate-checks.
type Ledger interface {
	InsertTx(ctx context.Context, tx pgx.Tx, rec *models.SettlementRecord) error
	MarkTransferredTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, transferID string) error
}

// Balances is the account repository subset for commission balances. Both
// increments are atomic SQL updates, never read-modify-write.
type Balances interface {
	AddAccruedCommissionTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountCents int64) (int64, error)
	AddSettledCommissionTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountCents int64) (int64, error)
}

// Settler credits a referrer for one qualifying payment: a real transfer
// when the referrer's connected account is onboarded, an accrual otherwise.
// A failed transfer accrues instead of surfacing, so the obligation is never
// dropped.
type Settler struct {
	pool      TxBeginner
	ledger    Ledger
	balances  Balances
	transfers payouts.TransferClient
	log       *slog.Logger
}

func NewSettler(pool TxBeginner, ledger Ledger, balances Balances, transfers payouts.TransferClient, log *slog.Logger) *Settler {
	if log == nil {
		log = slog.Default()
	}
	return &Settler{pool: pool, ledger: ledger, balances: balances, transfers: transfers, log: log}
}

// Settle runs the whole settlement in one transaction:
//
//  1. Claim the (source_event_id, referrer_account_id) ledger key. A
//     duplicate claim means the event was redelivered and already settled;
//     that is success, not failure.
//  2. Only after the claim holds, choose transfer vs accrual. A concurrent
//     duplicate blocks on the unique index until this transaction commits,
//     then observes the conflict, so a second transfer can never start.
//
// The transfer call resolves to transferred or accrued before Settle
// returns; it is never abandoned mid-state.
func (s *Settler) Settle(ctx context.Context, c *Commission) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rec := &models.SettlementRecord{
		ID:                uuid.New(),
		SourceEventID:     c.SourceEventID,
		ReferrerAccountID: c.Referrer.ID,
		ReferredAccountID: c.Referred.ID,
		AmountCents:       c.AmountCents,
		Status:            models.SettlementAccrued,
	}
	if err := s.ledger.InsertTx(ctx, tx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateSettlement) {
			s.log.Info("duplicate event delivery, settlement already recorded",
				"event_id", c.SourceEventID, "referrer_id", c.Referrer.ID)
			return nil
		}
		return err
	}

	if c.Referrer.PayoutAccountID != nil && c.Referrer.PayoutOnboarded {
		transferID, terr := s.transfers.Transfer(ctx, payouts.TransferRequest{
			DestinationAccountID: *c.Referrer.PayoutAccountID,
			AmountCents:          c.AmountCents,
			SourceEventID:        c.SourceEventID,
			ReferredAccountID:    c.Referred.ID.String(),
		})
		if terr == nil {
			if err := s.ledger.MarkTransferredTx(ctx, tx, rec.ID, transferID); err != nil {
				return err
			}
			if _, err := s.balances.AddSettledCommissionTx(ctx, tx, c.Referrer.ID, c.AmountCents); err != nil {
				return err
			}
			s.log.Info("commission transferred",
				"event_id", c.SourceEventID, "referrer_id", c.Referrer.ID,
				"amount_cents", c.AmountCents, "transfer_id", transferID)
			return tx.Commit(ctx)
		}
		s.log.Warn("transfer failed, accruing commission instead",
			"event_id", c.SourceEventID, "referrer_id", c.Referrer.ID, "error", terr)
	}

	if _, err := s.balances.AddAccruedCommissionTx(ctx, tx, c.Referrer.ID, c.AmountCents); err != nil {
		return err
	}
	s.log.Info("commission accrued",
		"event_id", c.SourceEventID, "referrer_id", c.Referrer.ID, "amount_cents", c.AmountCents)
	return tx.Commit(ctx)
}
