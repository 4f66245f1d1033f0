package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/BruksfildServices01/psico-pay/internal/config"
	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/BruksfildServices01/psico-pay/internal/timezone"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func NewDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DBUrl), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	db.Exec(`
        UPDATE therapists
        SET timezone = ?
        WHERE timezone IS NULL OR timezone = ''
    `, timezone.DefaultTimezone)

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Therapist{},
		&models.Patient{},
		&models.Session{},
		&models.PaymentPreference{},
		&models.Notification{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// EnsureTherapist returns the tenant identified by the configured slug,
// creating it on first boot.
func EnsureTherapist(db *gorm.DB, cfg *config.Config) (*models.Therapist, error) {
	var t models.Therapist
	err := db.Where("slug = ?", cfg.TherapistSlug).First(&t).Error
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load therapist: %w", err)
	}

	t = models.Therapist{
		Name:              cfg.TherapistName,
		Slug:              cfg.TherapistSlug,
		Timezone:          timezone.Location(cfg.Timezone).String(),
		SessionPriceCents: cfg.SessionPriceCents,
		Currency:          cfg.SessionCurrency,
	}
	if err := db.Create(&t).Error; err != nil {
		return nil, fmt.Errorf("create therapist: %w", err)
	}
	return &t, nil
}
