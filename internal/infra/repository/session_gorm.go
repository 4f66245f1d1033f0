package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/models"
)

type SessionGormRepository struct {
	db *gorm.DB
}

var _ domain.SessionRepository = (*SessionGormRepository)(nil)

func NewSessionGormRepository(db *gorm.DB) *SessionGormRepository {
	return &SessionGormRepository{db: db}
}

// --------------------------------------------------
// Sync
// --------------------------------------------------

func (r *SessionGormRepository) FindByCalendarEventID(
	ctx context.Context,
	eventID string,
) (*models.Session, error) {

	var s models.Session
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("calendar_event_id = ?", eventID).
		First(&s).Error
	return notFound(&s, err)
}

// FindOrCreate keys on calendar_event_id. A concurrent insert of the same
// event loses on the unique index and returns the winner's row.
func (r *SessionGormRepository) FindOrCreate(
	ctx context.Context,
	s *models.Session,
) (*models.Session, bool, error) {

	existing, err := r.FindByCalendarEventID(ctx, s.CalendarEventID)
	if err != nil {
		return nil, false, fmt.Errorf("find session by event: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	s.ScheduledAt = s.ScheduledAt.UTC()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(s).Error; err != nil {
			return err
		}
		return tx.Model(&models.Patient{}).
			Where("id = ?", s.PatientID).
			Updates(map[string]any{
				"total_sessions":  gorm.Expr("total_sessions + 1"),
				"last_session_at": s.ScheduledAt,
			}).Error
	})

	if isUniqueViolation(err) {
		winner, ferr := r.FindByCalendarEventID(ctx, s.CalendarEventID)
		if ferr != nil {
			return nil, false, fmt.Errorf("reload session after conflict: %w", ferr)
		}
		if winner != nil {
			return winner, false, nil
		}
	}
	if err != nil {
		return nil, false, fmt.Errorf("create session: %w", err)
	}

	return s, true, nil
}

func (r *SessionGormRepository) FindByID(
	ctx context.Context,
	id uuid.UUID,
) (*models.Session, error) {

	var s models.Session
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("id = ?", id).
		First(&s).Error
	return notFound(&s, err)
}

func (r *SessionGormRepository) ListUpcoming(
	ctx context.Context,
	from time.Time,
	to time.Time,
) ([]models.Session, error) {

	var out []models.Session
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("scheduled_at BETWEEN ? AND ?", from.UTC(), to.UTC()).
		Order("scheduled_at ASC").
		Find(&out).Error
	return out, err
}

// --------------------------------------------------
// Sweeps
// --------------------------------------------------

func (r *SessionGormRepository) window(
	ctx context.Context,
	now time.Time,
	w domain.Window,
) *gorm.DB {

	from, to := w.Bounds(now)
	return r.db.WithContext(ctx).
		Preload("Patient").
		Where("scheduled_at BETWEEN ? AND ?", from.UTC(), to.UTC()).
		Order("scheduled_at ASC")
}

func (r *SessionGormRepository) SessionsNeeding24hReminder(
	ctx context.Context,
	now time.Time,
	w domain.Window,
) ([]models.Session, error) {

	var out []models.Session
	err := r.window(ctx, now, w).
		Where("reminder_24h_sent = ?", false).
		Find(&out).Error
	return out, err
}

func (r *SessionGormRepository) SessionsNeeding2hReminder(
	ctx context.Context,
	now time.Time,
	w domain.Window,
) ([]models.Session, error) {

	var out []models.Session
	err := r.window(ctx, now, w).
		Where("reminder_24h_sent = ? AND reminder_2h_sent = ?", true, false).
		Find(&out).Error
	return out, err
}

func (r *SessionGormRepository) SessionsNeedingMeetLink(
	ctx context.Context,
	now time.Time,
	w domain.Window,
) ([]models.Session, error) {

	var out []models.Session
	err := r.window(ctx, now, w).
		Where("payment_status = ? AND meet_link_sent = ?", string(domain.PaymentPaid), false).
		Find(&out).Error
	return out, err
}

// --------------------------------------------------
// Flags
// --------------------------------------------------

func (r *SessionGormRepository) setFlag(
	ctx context.Context,
	id uuid.UUID,
	flag domain.Flag,
	value bool,
) error {

	col := flag.Column()
	if col == "" {
		return fmt.Errorf("unknown flag %q", flag)
	}
	return r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Update(col, value).Error
}

func (r *SessionGormRepository) MarkFlag(ctx context.Context, id uuid.UUID, flag domain.Flag) error {
	return r.setFlag(ctx, id, flag, true)
}

func (r *SessionGormRepository) ResetFlag(ctx context.Context, id uuid.UUID, flag domain.Flag) error {
	return r.setFlag(ctx, id, flag, false)
}

// --------------------------------------------------
// Payment
// --------------------------------------------------

func (r *SessionGormRepository) UpdatePaymentStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.PaymentStatus,
	providerPaymentID *string,
) error {

	updates := map[string]any{"payment_status": string(status)}
	if providerPaymentID != nil {
		updates["payment_id"] = *providerPaymentID
	}
	return r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *SessionGormRepository) MarkPaid(
	ctx context.Context,
	id uuid.UUID,
	providerPaymentID string,
) (bool, error) {

	var applied bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Session{}).
			Where("id = ? AND payment_status <> ?", id, string(domain.PaymentPaid)).
			Updates(map[string]any{
				"payment_status": string(domain.PaymentPaid),
				"payment_id":     providerPaymentID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		var s models.Session
		if err := tx.Select("patient_id", "amount_cents").
			Where("id = ?", id).
			First(&s).Error; err != nil {
			return err
		}

		return tx.Model(&models.Patient{}).
			Where("id = ?", s.PatientID).
			Update("total_paid_cents", gorm.Expr("total_paid_cents + ?", s.AmountCents)).Error
	})
	if err != nil {
		return false, fmt.Errorf("mark session paid: %w", err)
	}
	return applied, nil
}

// --------------------------------------------------
// Lifecycle
// --------------------------------------------------

func (r *SessionGormRepository) Update(
	ctx context.Context,
	s *models.Session,
) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(s).Error
}
