package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikestefanello/backlite"
)

const defaultAuditRetentionDays = 30

// AuditEventCleaner provides the ability to delete old audit events.
type AuditEventCleaner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

// CleanupAuditEventsTask removes audit events older than the configured retention period.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for audit cleanup tasks.
func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_audit_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupAuditEventsProcessor creates a processor function for CleanupAuditEventsTask.
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner, logger *slog.Logger) backlite.QueueProcessor[CleanupAuditEventsTask] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return fmt.Errorf("audit event cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = defaultAuditRetentionDays
		}
		cutoff := time.Now().AddDate(0, 0, -retentionDays)

		deleted, err := cleaner.DeleteOldEvents(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}

		logger.Info("cleaned up audit events",
			slog.Int64("deleted", deleted),
			slog.Int("retention_days", retentionDays),
		)
		return nil
	}
}

// NewCleanupAuditEventsQueue creates a backlite queue for audit cleanup tasks.
func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner, logger *slog.Logger) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner, logger))
}
