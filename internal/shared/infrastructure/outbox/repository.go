package outbox

import (
	"context"
	"time"
)

// Repository defines the interface for outbox persistence. Save runs inside
// the caller's transaction when one is carried in the context, so staging an
// event commits or rolls back together with the aggregate change.
type Repository interface {
	// Save stores a new outbox message.
	Save(ctx context.Context, msg *Message) error

	// GetUnpublished retrieves unpublished messages due for delivery,
	// ordered by creation time.
	GetUnpublished(ctx context.Context, limit int) ([]*Message, error)

	// MarkPublished marks a message as successfully published.
	MarkPublished(ctx context.Context, id int64) error

	// MarkFailed records a publish failure with the next retry time.
	MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error

	// MarkDead dead-letters a message that exhausted its retries. Dead
	// messages are kept for inspection but never delivered.
	MarkDead(ctx context.Context, id int64, reason string) error

	// DeleteOld removes published messages older than the retention period.
	DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error)
}
