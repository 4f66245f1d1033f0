package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/models"
)

type PatientGormRepository struct {
	db *gorm.DB
}

var _ domain.PatientRepository = (*PatientGormRepository)(nil)

func NewPatientGormRepository(db *gorm.DB) *PatientGormRepository {
	return &PatientGormRepository{db: db}
}

func (r *PatientGormRepository) FindByPhone(
	ctx context.Context,
	therapistID uuid.UUID,
	phone string,
) (*models.Patient, error) {

	var p models.Patient
	err := r.db.WithContext(ctx).
		Where("therapist_id = ? AND phone = ?", therapistID, phone).
		First(&p).Error
	return notFound(&p, err)
}

func (r *PatientGormRepository) FindOrCreate(
	ctx context.Context,
	therapistID uuid.UUID,
	name string,
	phone string,
) (*models.Patient, bool, error) {

	// 1) Telefone é a identidade mais forte
	if phone != "" {
		p, err := r.FindByPhone(ctx, therapistID, phone)
		if err != nil {
			return nil, false, fmt.Errorf("find patient by phone: %w", err)
		}
		if p != nil {
			return p, false, nil
		}
	}

	// 2) Nome exato, só quando não há ambiguidade
	var byName []models.Patient
	if err := r.db.WithContext(ctx).
		Where("therapist_id = ? AND name = ?", therapistID, name).
		Limit(2).
		Find(&byName).Error; err != nil {
		return nil, false, fmt.Errorf("find patient by name: %w", err)
	}

	if len(byName) == 1 {
		p := byName[0]
		if phone != "" && p.PhoneNumber() == "" {
			if err := r.db.WithContext(ctx).
				Model(&p).
				Update("phone", phone).Error; err != nil {
				return nil, false, fmt.Errorf("backfill patient phone: %w", err)
			}
			p.Phone = &phone
		}
		return &p, false, nil
	}

	// 3) Paciente novo
	p := models.Patient{
		TherapistID: therapistID,
		Name:        name,
	}
	if phone != "" {
		p.Phone = &phone
	}

	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		if isUniqueViolation(err) && phone != "" {
			existing, ferr := r.FindByPhone(ctx, therapistID, phone)
			if ferr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("create patient: %w", err)
	}

	return &p, true, nil
}
