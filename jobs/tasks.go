package jobs

import (
	"context"
	"encoding/json"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademia-app/akademia/internal/observability"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionCleanup removes expired session rows.
	TaskSessionCleanup = "sessions:cleanup"
	// TaskAuditPrune removes audit log entries past retention.
	TaskAuditPrune = "audit:prune"
)

// SessionCleanupPayload carries scheduling metadata.
type SessionCleanupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// AuditPrunePayload controls how much audit history is kept.
type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// DefaultAuditRetentionDays keeps three years of audit history.
const DefaultAuditRetentionDays = 1095

// NewSessionCleanupTask constructs an Asynq task for session cleanup.
func NewSessionCleanupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(SessionCleanupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionCleanup, body, asynq.Queue(QueueDefault)), nil
}

// NewAuditPruneTask constructs an Asynq task for audit retention.
func NewAuditPruneTask(retentionDays int) (*asynq.Task, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultAuditRetentionDays
	}
	body, err := json.Marshal(AuditPrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, body, asynq.Queue(QueueDefault)), nil
}

// NewSessionCleanupHandler deletes session rows whose expiry has passed.
func NewSessionCleanupHandler(pool *pgxpool.Pool, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SessionCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tag, err := pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
		if err != nil {
			metrics.ObserveJob(TaskSessionCleanup, "error")
			return err
		}
		metrics.ObserveJob(TaskSessionCleanup, "ok")
		if logger != nil {
			logger.Info("session cleanup finished", slog.Int64("removed", tag.RowsAffected()))
		}
		return nil
	}
}

// NewAuditPruneHandler deletes audit entries older than the retention window.
func NewAuditPruneHandler(pool *pgxpool.Pool, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditPrunePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		days := payload.RetentionDays
		if days <= 0 {
			days = DefaultAuditRetentionDays
		}
		tag, err := pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < NOW() - make_interval(days => $1)`, days)
		if err != nil {
			metrics.ObserveJob(TaskAuditPrune, "error")
			return err
		}
		metrics.ObserveJob(TaskAuditPrune, "ok")
		if logger != nil {
			logger.Info("audit prune finished", slog.Int("retention_days", days), slog.Int64("removed", tag.RowsAffected()))
		}
		return nil
	}
}
