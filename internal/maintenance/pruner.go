package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

// DefaultRetentionDays is how long webhook audit rows are kept.
const DefaultRetentionDays = 90

// PruneWebhookEventsArgs is the periodic job that trims the webhook_events
// audit table. It never touches accounts or the settlement ledger.
type PruneWebhookEventsArgs struct {
	RetentionDays int `json:"retention_days"`
}

func (PruneWebhookEventsArgs) Kind() string { return "prune_webhook_events" }

// EventPruner deletes audit rows received before the cutoff.
type EventPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type PruneWorker struct {
	river.WorkerDefaults[PruneWebhookEventsArgs]
	events EventPruner
	log    *slog.Logger
}

func NewPruneWorker(events EventPruner, log *slog.Logger) *PruneWorker {
	if log == nil {
		log = slog.Default()
	}
	return &PruneWorker{events: events, log: log}
}

func (w *PruneWorker) Work(ctx context.Context, job *river.Job[PruneWebhookEventsArgs]) error {
	retention := job.Args.RetentionDays
	if retention <= 0 {
		retention = DefaultRetentionDays
	}
	cutoff := time.Now().AddDate(0, 0, -retention)
	deleted, err := w.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	w.log.Info("pruned webhook audit events", "deleted", deleted, "cutoff", cutoff)
	return nil
}
