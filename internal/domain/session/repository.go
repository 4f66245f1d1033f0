package session

import (
	"context"
	"time"

	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/google/uuid"
)

// Lookups return (nil, nil) when nothing matches.

type PatientRepository interface {
	// FindOrCreate matches by phone first, then by exact name.
	// A single name match without a phone gets the phone back-filled.
	FindOrCreate(
		ctx context.Context,
		therapistID uuid.UUID,
		name string,
		phone string,
	) (*models.Patient, bool, error)
}

type SessionRepository interface {
	// -------- Sync --------
	FindOrCreate(
		ctx context.Context,
		s *models.Session,
	) (*models.Session, bool, error)

	FindByID(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Session, error)

	ListUpcoming(
		ctx context.Context,
		from time.Time,
		to time.Time,
	) ([]models.Session, error)

	// -------- Sweeps --------
	SessionsNeeding24hReminder(
		ctx context.Context,
		now time.Time,
		w Window,
	) ([]models.Session, error)

	SessionsNeeding2hReminder(
		ctx context.Context,
		now time.Time,
		w Window,
	) ([]models.Session, error)

	SessionsNeedingMeetLink(
		ctx context.Context,
		now time.Time,
		w Window,
	) ([]models.Session, error)

	// -------- Flags --------
	MarkFlag(ctx context.Context, id uuid.UUID, flag Flag) error
	ResetFlag(ctx context.Context, id uuid.UUID, flag Flag) error

	// -------- Payment --------
	UpdatePaymentStatus(
		ctx context.Context,
		id uuid.UUID,
		status PaymentStatus,
		providerPaymentID *string,
	) error

	// MarkPaid moves the session to paid only if it is not paid yet.
	// It reports whether this call performed the transition.
	MarkPaid(
		ctx context.Context,
		id uuid.UUID,
		providerPaymentID string,
	) (bool, error)

	// -------- Lifecycle --------
	Update(ctx context.Context, s *models.Session) error
}

type PaymentPreferenceRepository interface {
	FindBySessionID(
		ctx context.Context,
		sessionID uuid.UUID,
	) (*models.PaymentPreference, error)

	// UpsertIfExpired stores p unless a live preference already exists,
	// in which case the live one is returned with created=false.
	UpsertIfExpired(
		ctx context.Context,
		p *models.PaymentPreference,
		now time.Time,
	) (*models.PaymentPreference, bool, error)

	// Replace drops any preference of the session and stores p.
	Replace(ctx context.Context, p *models.PaymentPreference) error
}

type NotificationRepository interface {
	LogSuccess(
		ctx context.Context,
		sessionID uuid.UUID,
		kind NotificationType,
		providerMessageID string,
	) error

	LogFailure(
		ctx context.Context,
		sessionID uuid.UUID,
		kind NotificationType,
		reason string,
	) error

	WasNotificationSent(
		ctx context.Context,
		sessionID uuid.UUID,
		kind NotificationType,
	) (bool, error)

	FailedNotifications(
		ctx context.Context,
		limit int,
	) ([]models.Notification, error)
}
