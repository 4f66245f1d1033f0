package ops

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/httperr"
	"github.com/BruksfildServices01/psico-pay/internal/messages"
	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/BruksfildServices01/psico-pay/internal/validators"
)

type ConfirmPaymentResult struct {
	Session          *models.Session `json:"session"`
	ConfirmationSent bool            `json:"confirmation_sent"`
	MeetLinkSent     bool            `json:"meet_link_sent"`
}

// ConfirmPayment marks a session as paid without a gateway payment, for
// transfers and cash. Inside the meeting window the link goes out at once.
type ConfirmPayment struct {
	*base
}

func (uc *ConfirmPayment) Execute(
	ctx context.Context,
	actor string,
	sessionID uuid.UUID,
) (*ConfirmPaymentResult, error) {

	// --------------------------------------------------
	// 1) Sessão
	// --------------------------------------------------
	s, err := uc.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanConfirmPayment(domain.PaymentStatus(s.PaymentStatus)); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 2) pending → paid
	// --------------------------------------------------
	applied, err := uc.deps.Sessions.MarkPaid(ctx, s.ID, ManualPaymentID)
	if err != nil {
		return nil, fmt.Errorf("confirm payment: %w", err)
	}
	if !applied {
		return nil, httperr.ErrBusiness("already_paid")
	}

	pid := ManualPaymentID
	s.PaymentStatus = string(domain.PaymentPaid)
	s.PaymentID = &pid

	out := &ConfirmPaymentResult{Session: s}
	uc.audit(actor, "payment_confirmed_manually", s.ID, nil)

	if !validators.IsValidPhone(s.Patient.PhoneNumber()) {
		return out, nil
	}

	// --------------------------------------------------
	// 3) Mensagens
	// --------------------------------------------------
	res, err := uc.deps.Notifier.Deliver(ctx, s, domain.NotificationPaymentConfirmation, messages.PaymentConfirmation, "")
	if err != nil {
		return out, err
	}
	out.ConfirmationSent = res.Success

	now := uc.deps.Clock()
	if domain.NeedsMeetLink(s, now, uc.deps.Windows.MeetLink) && s.MeetLinkURL() != "" {
		res, err := uc.deps.Notifier.Deliver(ctx, s, domain.NotificationMeetLink, messages.MeetLink, "")
		if err != nil {
			return out, err
		}
		if err := uc.deps.Sessions.MarkFlag(ctx, s.ID, domain.FlagMeetLink); err != nil {
			return out, fmt.Errorf("mark meet link: %w", err)
		}
		s.MeetLinkSent = true
		out.MeetLinkSent = res.Success
	}

	return out, nil
}
