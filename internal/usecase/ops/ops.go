package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/psico-pay/internal/audit"
	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/httperr"
	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/notify"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/payment"
)

// ManualPaymentID is stored as payment_id when an operator confirms by hand.
const ManualPaymentID = "manual-confirmation"

type Deps struct {
	TherapistID   uuid.UUID
	Sessions      domain.SessionRepository
	Notifications domain.NotificationRepository
	Links         *payment.Links
	Notifier      *notify.Notifier
	Audit         *audit.Dispatcher
	Windows       domain.Windows
	Clock         func() time.Time
}

// Usecases groups every operator action, shared by the CLI and the HTTP API.
type Usecases struct {
	ResetReminder   *ResetReminder
	ConfirmPayment  *ConfirmPayment
	SendPaymentLink *SendPaymentLink
	SendReminder    *SendReminder
	ChangeStatus    *ChangeStatus
	ListFailed      *ListFailedNotifications
	ListUpcoming    *ListUpcoming
}

func New(d Deps) *Usecases {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	b := &base{deps: d}
	return &Usecases{
		ResetReminder:   &ResetReminder{base: b},
		ConfirmPayment:  &ConfirmPayment{base: b},
		SendPaymentLink: &SendPaymentLink{base: b},
		SendReminder:    &SendReminder{base: b},
		ChangeStatus:    &ChangeStatus{base: b},
		ListFailed:      &ListFailedNotifications{base: b},
		ListUpcoming:    &ListUpcoming{base: b},
	}
}

type base struct {
	deps Deps
}

func (b *base) load(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := b.deps.Sessions.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return nil, httperr.ErrBusiness("session_not_found")
	}
	return s, nil
}

func (b *base) audit(actor, action string, sessionID uuid.UUID, meta any) {
	b.deps.Audit.Dispatch(audit.Event{
		TherapistID: b.deps.TherapistID,
		Actor:       actor,
		Action:      action,
		Entity:      "session",
		EntityID:    &sessionID,
		Metadata:    meta,
	})
}
