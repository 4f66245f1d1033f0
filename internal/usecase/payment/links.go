package payment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/models"
)

// Links manages the payment preference attached to each session.
type Links struct {
	payments domain.PaymentGateway
	prefs    domain.PaymentPreferenceRepository
	timeout  time.Duration
	log      *zap.Logger
}

func NewLinks(
	payments domain.PaymentGateway,
	prefs domain.PaymentPreferenceRepository,
	timeout time.Duration,
	log *zap.Logger,
) *Links {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Links{payments: payments, prefs: prefs, timeout: timeout, log: log}
}

// Current returns the stored preference, live or not.
func (l *Links) Current(ctx context.Context, s *models.Session) (*models.PaymentPreference, error) {
	return l.prefs.FindBySessionID(ctx, s.ID)
}

// Ensure reuses a live preference or creates a new one at the gateway.
func (l *Links) Ensure(
	ctx context.Context,
	s *models.Session,
	now time.Time,
) (*models.PaymentPreference, error) {

	existing, err := l.prefs.FindBySessionID(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("find payment preference: %w", err)
	}
	if existing != nil && !existing.Expired(now) {
		return existing, nil
	}

	fresh, err := l.create(ctx, s)
	if err != nil {
		return nil, err
	}

	stored, _, err := l.prefs.UpsertIfExpired(ctx, fresh, now)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Regenerate always creates a new preference, dropping the previous one.
func (l *Links) Regenerate(ctx context.Context, s *models.Session) (*models.PaymentPreference, error) {
	fresh, err := l.create(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := l.prefs.Replace(ctx, fresh); err != nil {
		return nil, fmt.Errorf("replace payment preference: %w", err)
	}
	return fresh, nil
}

func (l *Links) create(ctx context.Context, s *models.Session) (*models.PaymentPreference, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	pref, err := l.payments.CreatePreference(callCtx, domain.PreferenceRequest{
		SessionID:   s.ID.String(),
		PatientName: s.Patient.Name,
		SessionDate: s.ScheduledAt,
		AmountCents: s.AmountCents,
		Currency:    s.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment preference: %w", err)
	}

	return &models.PaymentPreference{
		SessionID:            s.ID,
		ProviderPreferenceID: pref.ProviderPreferenceID,
		PaymentLink:          pref.PaymentLink,
		SandboxLink:          pref.SandboxLink,
		AmountCents:          s.AmountCents,
		Currency:             s.Currency,
		ExpiresAt:            pref.ExpiresAt,
	}, nil
}
