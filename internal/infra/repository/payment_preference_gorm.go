package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/models"
)

type PaymentPreferenceGormRepository struct {
	db *gorm.DB
}

var _ domain.PaymentPreferenceRepository = (*PaymentPreferenceGormRepository)(nil)

func NewPaymentPreferenceGormRepository(db *gorm.DB) *PaymentPreferenceGormRepository {
	return &PaymentPreferenceGormRepository{db: db}
}

func (r *PaymentPreferenceGormRepository) FindBySessionID(
	ctx context.Context,
	sessionID uuid.UUID,
) (*models.PaymentPreference, error) {

	var p models.PaymentPreference
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		First(&p).Error
	return notFound(&p, err)
}

func (r *PaymentPreferenceGormRepository) UpsertIfExpired(
	ctx context.Context,
	p *models.PaymentPreference,
	now time.Time,
) (*models.PaymentPreference, bool, error) {

	var (
		result  = p
		created bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.PaymentPreference
		err := tx.Where("session_id = ?", p.SessionID).
			Order("created_at DESC").
			First(&current).Error

		switch {
		case err == nil && !current.Expired(now):
			result = &current
			return nil
		case err == nil:
			if err := tx.Where("session_id = ?", p.SessionID).
				Delete(&models.PaymentPreference{}).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		p.ExpiresAt = p.ExpiresAt.UTC()
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("upsert payment preference: %w", err)
	}
	return result, created, nil
}

func (r *PaymentPreferenceGormRepository) Replace(
	ctx context.Context,
	p *models.PaymentPreference,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", p.SessionID).
			Delete(&models.PaymentPreference{}).Error; err != nil {
			return err
		}
		p.ExpiresAt = p.ExpiresAt.UTC()
		return tx.Create(p).Error
	})
}
