package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/menuahora/backend/internal/models"
)

type WebhookEventRepo struct {
	pool *pgxpool.Pool
}

func NewWebhookEventRepo(pool *pgxpool.Pool) *WebhookEventRepo {
	return &WebhookEventRepo{pool: pool}
}

// Insert stores the audit copy of a verified event. Redeliveries insert
// nothing (ON CONFLICT DO NOTHING) and are never treated as an error here;
// deduplication of side effects belongs to the settlement ledger alone.
func (r *WebhookEventRepo) Insert(ctx context.Context, ev *models.WebhookEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO webhook_events (provider_event_id, event_type, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_event_id) DO NOTHING
	`, ev.ProviderEventID, ev.EventType, ev.Payload)
	return err
}

// DeleteOlderThan prunes audit rows received before the cutoff. Returns the
// number of rows removed.
func (r *WebhookEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhook_events WHERE received_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
