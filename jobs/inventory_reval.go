package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryRevaluationJob reconciles balance rows against the surviving cost
// layers. Layer-based products can drift from the moving average snapshot
// after manual corrections; this job makes the layers authoritative again.
type InventoryRevaluationJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewInventoryRevaluationJob constructs the job.
func NewInventoryRevaluationJob(pool *pgxpool.Pool, logger *slog.Logger) *InventoryRevaluationJob {
	return &InventoryRevaluationJob{pool: pool, logger: logger}
}

const revalQuery = `
UPDATE inventory_balances b
SET qty      = l.qty,
    avg_cost = CASE WHEN l.qty > 0 THEN l.cost / l.qty ELSE 0 END,
    updated_at = NOW()
FROM (
    SELECT warehouse_id, product_id,
           COALESCE(SUM(qty), 0)            AS qty,
           COALESCE(SUM(qty * unit_cost), 0) AS cost
    FROM cost_layers
    GROUP BY warehouse_id, product_id
) l
WHERE b.warehouse_id = l.warehouse_id
  AND b.product_id   = l.product_id
  AND (b.qty <> l.qty OR ABS(b.qty * b.avg_cost - l.cost) > 0.01)`

// Handle processes TaskInventoryRevaluation tasks.
func (j *InventoryRevaluationJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload InventoryRevaluationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	start := time.Now()
	tag, err := j.pool.Exec(ctx, revalQuery)
	if err != nil {
		j.logger.Error("inventory revaluation", slog.Any("error", err))
		return err
	}
	j.logger.Info("inventory revaluation done",
		slog.Int64("rows", tag.RowsAffected()),
		slog.Duration("took", time.Since(start)),
		slog.Time("scheduled_for", payload.ScheduledFor))
	return nil
}
