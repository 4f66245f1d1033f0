package models

import (
	"time"

	"github.com/google/uuid"
)

// Paciente, criado a partir dos eventos da agenda
type Patient struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TherapistID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_patients_therapist_phone;index" json:"therapist_id"`

	Name  string  `gorm:"size:255;not null;index" json:"name"`
	Phone *string `gorm:"size:20;uniqueIndex:idx_patients_therapist_phone" json:"phone"`
	Email string  `gorm:"size:255" json:"email"`

	TotalSessions  int        `gorm:"not null;default:0" json:"total_sessions"`
	TotalPaidCents int64      `gorm:"not null;default:0" json:"total_paid_cents"`
	LastSessionAt  *time.Time `json:"last_session_at"`
	Trusted        bool       `gorm:"not null;default:false" json:"trusted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PhoneNumber returns the stored phone or an empty string.
func (p *Patient) PhoneNumber() string {
	if p == nil || p.Phone == nil {
		return ""
	}
	return *p.Phone
}
