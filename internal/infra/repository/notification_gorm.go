package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/models"
)

type NotificationGormRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ domain.NotificationRepository = (*NotificationGormRepository)(nil)

func NewNotificationGormRepository(db *gorm.DB) *NotificationGormRepository {
	return &NotificationGormRepository{db: db, now: time.Now}
}

func (r *NotificationGormRepository) LogSuccess(
	ctx context.Context,
	sessionID uuid.UUID,
	kind domain.NotificationType,
	providerMessageID string,
) error {

	sentAt := r.now().UTC()
	return r.db.WithContext(ctx).Create(&models.Notification{
		SessionID:         sessionID,
		Type:              string(kind),
		Channel:           domain.ChannelWhatsApp,
		Status:            string(domain.DeliverySent),
		ProviderMessageID: providerMessageID,
		SentAt:            &sentAt,
	}).Error
}

func (r *NotificationGormRepository) LogFailure(
	ctx context.Context,
	sessionID uuid.UUID,
	kind domain.NotificationType,
	reason string,
) error {

	return r.db.WithContext(ctx).Create(&models.Notification{
		SessionID: sessionID,
		Type:      string(kind),
		Channel:   domain.ChannelWhatsApp,
		Status:    string(domain.DeliveryFailed),
		Error:     reason,
	}).Error
}

func (r *NotificationGormRepository) WasNotificationSent(
	ctx context.Context,
	sessionID uuid.UUID,
	kind domain.NotificationType,
) (bool, error) {

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("session_id = ? AND type = ? AND status = ?", sessionID, string(kind), string(domain.DeliverySent)).
		Count(&count).Error
	return count > 0, err
}

func (r *NotificationGormRepository) FailedNotifications(
	ctx context.Context,
	limit int,
) ([]models.Notification, error) {

	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var out []models.Notification
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.DeliveryFailed)).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
