package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Kind string

const (
	KindAccountCreated       Kind = "account_created"
	KindAppointmentBooked    Kind = "appointment_booked"
	KindAppointmentCancelled Kind = "appointment_cancelled"
)

type Notification struct {
	UserID  uuid.UUID      `json:"user_id"`
	Kind    Kind           `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Sender delivers a notification to a user. Delivery is best-effort:
// callers must not fail their own operation when Send errors.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type logSender struct {
	log zerolog.Logger
}

// NewLogSender returns a Sender that only logs. Used in dev and tests.
func NewLogSender(log zerolog.Logger) Sender {
	return &logSender{log: log}
}

func (s *logSender) Send(_ context.Context, n Notification) error {
	s.log.Info().
		Str("user_id", n.UserID.String()).
		Str("kind", string(n.Kind)).
		Interface("payload", n.Payload).
		Msg("notification")
	return nil
}
