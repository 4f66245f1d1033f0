package session

import (
	"context"
	"time"

	"github.com/BruksfildServices01/psico-pay/internal/domain/calendar"
)

// ===============================
// Calendar
// ===============================

type CalendarGateway interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
}

// ===============================
// Payments
// ===============================

type PreferenceRequest struct {
	SessionID   string // external reference echoed back by the webhook
	PatientName string
	SessionDate time.Time
	AmountCents int64
	Currency    string
}

type Preference struct {
	ProviderPreferenceID string
	PaymentLink          string
	SandboxLink          string
	ExpiresAt            time.Time
}

const PaymentApproved = "approved"

type Payment struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	AmountCents       int64
}

type PaymentGateway interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
}

// ===============================
// Messaging
// ===============================

type SendResult struct {
	Success           bool
	ProviderMessageID string
	Error             string
}

// MessagingGateway reports delivery problems in the result, never as an error.
type MessagingGateway interface {
	Send(ctx context.Context, to, body string) SendResult
}
