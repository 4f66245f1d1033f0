package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/messages"
	"github.com/BruksfildServices01/psico-pay/internal/metrics"
	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/BruksfildServices01/psico-pay/internal/validators"
)

// Notifier renders a message, sends it and records the attempt.
type Notifier struct {
	messenger     domain.MessagingGateway
	notifications domain.NotificationRepository
	location      *time.Location
	timeout       time.Duration
	log           *zap.Logger
	metrics       *metrics.Metrics
}

func NewNotifier(
	messenger domain.MessagingGateway,
	notifications domain.NotificationRepository,
	location *time.Location,
	timeout time.Duration,
	log *zap.Logger,
	m *metrics.Metrics,
) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Notifier{
		messenger:     messenger,
		notifications: notifications,
		location:      location,
		timeout:       timeout,
		log:           log,
		metrics:       m,
	}
}

func (n *Notifier) Location() *time.Location { return n.location }

// Deliver sends one message to the session's patient. Delivery failures are
// reported in the result; the error is only set when the attempt could not
// be recorded.
func (n *Notifier) Deliver(
	ctx context.Context,
	s *models.Session,
	kind domain.NotificationType,
	tmpl messages.Kind,
	paymentLink string,
) (domain.SendResult, error) {

	phone := s.Patient.PhoneNumber()

	body, err := messages.Render(tmpl, messages.Data{
		PatientName: s.Patient.Name,
		ScheduledAt: s.ScheduledAt,
		PaymentLink: paymentLink,
		MeetLink:    s.MeetLinkURL(),
		Location:    n.location,
	})
	if err != nil {
		res := domain.SendResult{Error: err.Error()}
		return res, n.record(ctx, s.ID, kind, res)
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	res := n.messenger.Send(sendCtx, phone, body)
	cancel()

	if res.Success {
		n.log.Info("notification sent",
			zap.String("session_id", s.ID.String()),
			zap.String("type", string(kind)),
			zap.String("to", validators.MaskPhone(phone)),
		)
	} else {
		n.log.Warn("notification failed",
			zap.String("session_id", s.ID.String()),
			zap.String("type", string(kind)),
			zap.String("to", validators.MaskPhone(phone)),
			zap.String("error", res.Error),
		)
	}

	return res, n.record(ctx, s.ID, kind, res)
}

// RecordSkip stores a failed attempt for a message that was never sent.
func (n *Notifier) RecordSkip(
	ctx context.Context,
	s *models.Session,
	kind domain.NotificationType,
	reason domain.SkipReason,
) error {

	n.log.Warn("notification skipped",
		zap.String("session_id", s.ID.String()),
		zap.String("type", string(kind)),
		zap.String("reason", string(reason)),
	)
	return n.record(ctx, s.ID, kind, domain.SendResult{Error: string(reason)})
}

func (n *Notifier) record(
	ctx context.Context,
	sessionID uuid.UUID,
	kind domain.NotificationType,
	res domain.SendResult,
) error {

	var err error
	if res.Success {
		n.metrics.Notification(string(kind), string(domain.DeliverySent))
		err = n.notifications.LogSuccess(ctx, sessionID, kind, res.ProviderMessageID)
	} else {
		n.metrics.Notification(string(kind), string(domain.DeliveryFailed))
		err = n.notifications.LogFailure(ctx, sessionID, kind, res.Error)
	}
	if err != nil {
		return fmt.Errorf("record %s notification: %w", kind, err)
	}
	return nil
}
