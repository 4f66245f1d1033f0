package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/infra/lock"
	"github.com/BruksfildServices01/psico-pay/internal/messages"
	"github.com/BruksfildServices01/psico-pay/internal/metrics"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/notify"
	"github.com/BruksfildServices01/psico-pay/internal/validators"
)

// ======================================================
// INPUT / OUTPUT
// ======================================================

type Notification struct {
	Type   string
	Action string
	DataID string
}

type Outcome string

const (
	OutcomeIgnoredType      Outcome = "ignored_type"
	OutcomeInvalidID        Outcome = "invalid_id"
	OutcomeInFlight         Outcome = "in_flight"
	OutcomeLookupFailed     Outcome = "lookup_failed"
	OutcomeNotApproved      Outcome = "not_approved"
	OutcomeMissingReference Outcome = "missing_reference"
	OutcomeSessionNotFound  Outcome = "session_not_found"
	OutcomeAlreadyPaid      Outcome = "already_paid"
	OutcomeConfirmed        Outcome = "confirmed"
	OutcomeFailed           Outcome = "failed"
)

const lockTTL = 60 * time.Second

// ======================================================
// USE CASE
// ======================================================

// ConfirmPayment applies a payment notification to its session. Duplicate
// and concurrent deliveries converge on a single paid transition and a
// single confirmation message.
type ConfirmPayment struct {
	payments domain.PaymentGateway
	sessions domain.SessionRepository
	notifier *notify.Notifier
	locker   lock.Locker
	timeout  time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewConfirmPayment(
	payments domain.PaymentGateway,
	sessions domain.SessionRepository,
	notifier *notify.Notifier,
	locker lock.Locker,
	timeout time.Duration,
	log *zap.Logger,
	m *metrics.Metrics,
) *ConfirmPayment {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ConfirmPayment{
		payments: payments,
		sessions: sessions,
		notifier: notifier,
		locker:   locker,
		timeout:  timeout,
		log:      log.Named("webhook"),
		metrics:  m,
	}
}

func (uc *ConfirmPayment) Execute(ctx context.Context, n Notification) Outcome {
	out := uc.execute(ctx, n)
	uc.metrics.Webhook(string(out))
	return out
}

func (uc *ConfirmPayment) execute(ctx context.Context, n Notification) Outcome {
	log := uc.log.With(zap.String("payment_id", n.DataID), zap.String("type", n.Type))

	// --------------------------------------------------
	// 1) Só interessa o tópico de pagamentos
	// --------------------------------------------------
	if n.Type != "payment" {
		log.Debug("webhook ignored")
		return OutcomeIgnoredType
	}
	if id, err := strconv.ParseInt(n.DataID, 10, 64); err != nil || id <= 0 {
		log.Warn("webhook with invalid payment id")
		return OutcomeInvalidID
	}

	// --------------------------------------------------
	// 2) Uma entrega por vez para o mesmo pagamento
	// --------------------------------------------------
	release, ok, err := uc.locker.Acquire(ctx, "webhook:payment:"+n.DataID, lockTTL)
	if err != nil {
		// Redis fora do ar não bloqueia: a escrita condicional segura a idempotência
		log.Warn("webhook lock unavailable", zap.Error(err))
	} else if !ok {
		log.Info("webhook already being processed")
		return OutcomeInFlight
	}
	defer release()

	// --------------------------------------------------
	// 3) Consulta o pagamento no gateway
	// --------------------------------------------------
	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	p, err := uc.payments.GetPayment(callCtx, n.DataID)
	cancel()
	if err != nil {
		log.Error("payment lookup failed", zap.Error(err))
		return OutcomeLookupFailed
	}
	if p.Status != domain.PaymentApproved {
		log.Info("payment not approved", zap.String("status", p.Status), zap.String("detail", p.StatusDetail))
		return OutcomeNotApproved
	}
	if p.ExternalReference == "" {
		log.Warn("approved payment without external reference")
		return OutcomeMissingReference
	}

	// --------------------------------------------------
	// 4) Sessão
	// --------------------------------------------------
	sessionID, err := uuid.Parse(p.ExternalReference)
	if err != nil {
		log.Error("external reference is not a session id", zap.String("reference", p.ExternalReference))
		return OutcomeSessionNotFound
	}
	s, err := uc.sessions.FindByID(ctx, sessionID)
	if err != nil {
		log.Error("load session failed", zap.Error(err))
		return OutcomeFailed
	}
	if s == nil {
		log.Error("session not found", zap.String("session_id", sessionID.String()))
		return OutcomeSessionNotFound
	}
	if domain.IsPaid(s) {
		log.Info("session already paid", zap.String("session_id", s.ID.String()))
		return OutcomeAlreadyPaid
	}

	// --------------------------------------------------
	// 5) Transição condicional pending → paid
	// --------------------------------------------------
	applied, err := uc.sessions.MarkPaid(ctx, s.ID, p.ID)
	if err != nil {
		log.Error("mark paid failed", zap.Error(err))
		return OutcomeFailed
	}
	if !applied {
		log.Info("session paid by a concurrent delivery", zap.String("session_id", s.ID.String()))
		return OutcomeAlreadyPaid
	}

	log.Info("payment confirmed", zap.String("session_id", s.ID.String()))

	// --------------------------------------------------
	// 6) Confirmação ao paciente
	// --------------------------------------------------
	if !validators.IsValidPhone(s.Patient.PhoneNumber()) {
		if err := uc.notifier.RecordSkip(ctx, s, domain.NotificationPaymentConfirmation, domain.SkipInvalidPhone); err != nil {
			log.Error("record skipped confirmation failed", zap.Error(err))
		}
		return OutcomeConfirmed
	}

	if _, err := uc.notifier.Deliver(ctx, s, domain.NotificationPaymentConfirmation, messages.PaymentConfirmation, ""); err != nil {
		log.Error("record confirmation failed", zap.Error(err))
	}
	return OutcomeConfirmed
}
