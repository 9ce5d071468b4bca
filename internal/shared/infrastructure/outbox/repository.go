package outbox

import (
	"context"
	"time"
)

// Repository stores staged messages. Save and SaveBatch join the
// caller's transaction when the context carries one, which is what
// makes the outbox write atomic with the aggregate write.
type Repository interface {
	// Save stages one message.
	Save(ctx context.Context, msg *Message) error

	// SaveBatch stages several messages in one atomic write.
	SaveBatch(ctx context.Context, msgs []*Message) error

	// GetUnpublished returns pending messages oldest first, skipping
	// rows whose retry backoff has not elapsed.
	GetUnpublished(ctx context.Context, limit int) ([]*Message, error)

	// MarkPublished records a successful delivery.
	MarkPublished(ctx context.Context, id int64) error

	// MarkFailed bumps the retry counter and schedules the next attempt.
	MarkFailed(ctx context.Context, id int64, err string, nextRetryAt time.Time) error

	// MarkDead parks a message that exhausted its retries.
	MarkDead(ctx context.Context, id int64, reason string) error

	// GetFailed returns messages that failed at least once and still
	// have retries left.
	GetFailed(ctx context.Context, maxRetries, limit int) ([]*Message, error)

	// DeleteOld prunes delivered messages past the retention window and
	// reports how many rows were removed.
	DeleteOld(ctx context.Context, olderThanDays int) (int64, error)
}
