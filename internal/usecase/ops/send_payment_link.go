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

type SendPaymentLinkResult struct {
	Preference *models.PaymentPreference `json:"preference"`
	Sent       bool                      `json:"sent"`
	Error      string                    `json:"error,omitempty"`
}

// SendPaymentLink issues a fresh checkout link and sends it right away.
type SendPaymentLink struct {
	*base
}

func (uc *SendPaymentLink) Execute(
	ctx context.Context,
	actor string,
	sessionID uuid.UUID,
) (*SendPaymentLinkResult, error) {

	s, err := uc.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanConfirmPayment(domain.PaymentStatus(s.PaymentStatus)); err != nil {
		return nil, err
	}
	if !validators.IsValidPhone(s.Patient.PhoneNumber()) {
		return nil, httperr.ErrBusiness("no_phone")
	}

	pref, err := uc.deps.Links.Regenerate(ctx, s)
	if err != nil {
		return nil, err
	}

	res, err := uc.deps.Notifier.Deliver(ctx, s, domain.NotificationReminder24h, messages.PaymentReminder, pref.PaymentLink)
	if err != nil {
		return nil, err
	}
	if err := uc.deps.Sessions.MarkFlag(ctx, s.ID, domain.FlagReminder24h); err != nil {
		return nil, fmt.Errorf("mark 24h reminder: %w", err)
	}

	uc.audit(actor, "payment_link_sent", s.ID, map[string]any{
		"preference_id": pref.ProviderPreferenceID,
		"sent":          res.Success,
	})

	return &SendPaymentLinkResult{Preference: pref, Sent: res.Success, Error: res.Error}, nil
}
