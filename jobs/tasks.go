package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInventoryRevaluation triggers the nightly balance reconciliation.
	TaskInventoryRevaluation = "inventory:revaluation"
	// TaskIdempotencyCleanup prunes expired posting keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// InventoryRevaluationPayload carries scheduling metadata.
type InventoryRevaluationPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewInventoryRevaluationTask constructs an Asynq task for balance reconciliation.
func NewInventoryRevaluationTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(InventoryRevaluationPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryRevaluation, body, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload carries the retention window in hours.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs an Asynq task for key pruning.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	hours := int(retention.Hours())
	if hours <= 0 {
		hours = 168
	}
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: hours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
