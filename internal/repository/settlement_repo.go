package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/menuahora/backend/internal/models"
)

// ErrDuplicateSettlement is returned when a settlement row for the same
// (source_event_id, referrer_account_id) pair already exists. It marks an
// event redelivery: the commission was already settled, nothing more to do.
var ErrDuplicateSettlement = errors.New("settlement already recorded for this event")

type SettlementRepo struct {
	pool *pgxpool.Pool
}

func NewSettlementRepo(pool *pgxpool.Pool) *SettlementRepo {
	return &SettlementRepo{pool: pool}
}

func (r *SettlementRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// InsertTx claims the (source_event_id, referrer_account_id) key. A unique
// violation maps to ErrDuplicateSettlement. The row is created as accrued;
// MarkTransferredTx finalizes it within the same transaction if the funds
// transfer succeeds before commit.
func (r *SettlementRepo) InsertTx(ctx context.Context, tx pgx.Tx, rec *models.SettlementRecord) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO settlement_records (id, source_event_id, referrer_account_id, referred_account_id, amount_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, rec.ID, rec.SourceEventID, rec.ReferrerAccountID, rec.ReferredAccountID,
		rec.AmountCents, rec.Status).Scan(&rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSettlement
		}
		return err
	}
	return nil
}

// MarkTransferredTx finalizes the claimed row as transferred.
func (r *SettlementRepo) MarkTransferredTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, transferID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE settlement_records SET status = $2, transfer_id = $3 WHERE id = $1
	`, id, models.SettlementTransferred, transferID)
	return err
}

// ListByReferrer returns the referrer's settlement history, newest first.
func (r *SettlementRepo) ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]*models.SettlementRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, source_event_id, referrer_account_id, referred_account_id, amount_cents, status, transfer_id, created_at
		FROM settlement_records WHERE referrer_account_id = $1 ORDER BY created_at DESC
	`, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.SettlementRecord
	for rows.Next() {
		var rec models.SettlementRecord
		if err := rows.Scan(&rec.ID, &rec.SourceEventID, &rec.ReferrerAccountID, &rec.ReferredAccountID,
			&rec.AmountCents, &rec.Status, &rec.TransferID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &rec)
	}
	return list, rows.Err()
}
