package notification

import (
	"context"
	"errors"

	"mindwell/models"
)

// ErrChannelNotConfigured marks a channel that has no transport configured.
// It is permanent and non-retryable: callers report the send as failed
// immediately instead of scheduling retries.
var ErrChannelNotConfigured = errors.New("channel not configured")

// NotificationChannel sends email and SMS. Implementations must surface an
// unconfigured channel as ErrChannelNotConfigured so retry logic can
// distinguish it from transient transport failures.
type NotificationChannel interface {
	SendEmail(ctx context.Context, msg models.EmailMessage) error
	SendSMS(ctx context.Context, msg models.SMSMessage) error
}
