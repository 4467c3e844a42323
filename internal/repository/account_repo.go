package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/menuahora/backend/internal/models"
)

const accountColumns = `id, email, username, password_hash, role, has_access, is_on_trial,
	trial_start_at, trial_end_at, referred_by_code, payout_account_id, payout_onboarded,
	accrued_commission_cents, total_settled_commission_cents, created_at, updated_at`

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Role, &a.HasAccess,
		&a.IsOnTrial, &a.TrialStartAt, &a.TrialEndAt, &a.ReferredByCode, &a.PayoutAccountID,
		&a.PayoutOnboarded, &a.AccruedCommissionCents, &a.TotalSettledCommissionCents,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, email, username, password_hash, role, has_access, is_on_trial,
			trial_start_at, trial_end_at, referred_by_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, a.ID, a.Email, a.Username, a.PasswordHash, a.Role, a.HasAccess, a.IsOnTrial,
		a.TrialStartAt, a.TrialEndAt, a.ReferredByCode).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// GetByID returns (nil, nil) when no account matches.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// GetByEmail returns (nil, nil) when no account matches.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
}

// GetByUsername returns (nil, nil) when no account matches.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username))
}

// GetByPayoutAccountID returns (nil, nil) when no account owns the given
// connected payout account.
func (r *AccountRepo) GetByPayoutAccountID(ctx context.Context, payoutAccountID string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE payout_account_id = $1`, payoutAccountID))
}

// SetAccess overwrites has_access. When clearTrial is true the trial flag is
// overwritten to false in the same statement (a paid account is never on trial).
// Overwrites, never increments, so replayed events are idempotent here.
func (r *AccountRepo) SetAccess(ctx context.Context, id uuid.UUID, hasAccess, clearTrial bool) error {
	if clearTrial {
		_, err := r.pool.Exec(ctx, `
			UPDATE accounts SET has_access = $2, is_on_trial = FALSE, updated_at = now() WHERE id = $1
		`, id, hasAccess)
		return err
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET has_access = $2, updated_at = now() WHERE id = $1
	`, id, hasAccess)
	return err
}

// SetTrial overwrites the trial fields (admin extend/reset path).
func (r *AccountRepo) SetTrial(ctx context.Context, id uuid.UUID, onTrial bool, startAt, endAt *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET is_on_trial = $2, trial_start_at = $3, trial_end_at = $4, updated_at = now()
		WHERE id = $1
	`, id, onTrial, startAt, endAt)
	return err
}

// SetPayoutOnboarded marks the connected payout account as provider-verified.
// The flag only ever transitions false -> true.
func (r *AccountRepo) SetPayoutOnboarded(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET payout_onboarded = TRUE, updated_at = now() WHERE id = $1
	`, id)
	return err
}

// SetPayoutAccountID records the connected payout account reference.
func (r *AccountRepo) SetPayoutAccountID(ctx context.Context, id uuid.UUID, payoutAccountID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET payout_account_id = $2, updated_at = now() WHERE id = $1
	`, id, payoutAccountID)
	return err
}

// AddAccruedCommissionTx atomically increments accrued_commission_cents.
// Must run inside the settlement transaction.
func (r *AccountRepo) AddAccruedCommissionTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountCents int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET accrued_commission_cents = accrued_commission_cents + $1, updated_at = now()
		WHERE id = $2
		RETURNING accrued_commission_cents
	`, amountCents, id).Scan(&newBalance)
	return newBalance, err
}

// AddSettledCommissionTx atomically increments total_settled_commission_cents.
// Must run inside the settlement transaction.
func (r *AccountRepo) AddSettledCommissionTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountCents int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET total_settled_commission_cents = total_settled_commission_cents + $1, updated_at = now()
		WHERE id = $2
		RETURNING total_settled_commission_cents
	`, amountCents, id).Scan(&newBalance)
	return newBalance, err
}
