package models

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	TherapistID uuid.UUID `gorm:"type:uuid;not null;index" json:"therapist_id"`

	PatientID uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	Patient   Patient   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"patient"`

	CalendarEventID string    `gorm:"size:255;not null;uniqueIndex" json:"calendar_event_id"`
	ScheduledAt     time.Time `gorm:"not null;index" json:"scheduled_at"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	AmountCents     int64     `gorm:"not null" json:"amount_cents"`
	Currency        string    `gorm:"size:3;not null" json:"currency"`

	Status        string  `gorm:"size:20;not null;default:'scheduled';index" json:"status"`
	PaymentStatus string  `gorm:"size:20;not null;default:'pending';index" json:"payment_status"`
	PaymentID     *string `gorm:"size:255" json:"payment_id"`
	MeetLink      *string `gorm:"type:text" json:"meet_link"`

	Reminder24hSent bool `gorm:"column:reminder_24h_sent;not null;default:false" json:"reminder_24h_sent"`
	Reminder2hSent  bool `gorm:"column:reminder_2h_sent;not null;default:false" json:"reminder_2h_sent"`
	MeetLinkSent    bool `gorm:"column:meet_link_sent;not null;default:false" json:"meet_link_sent"`

	CancelledAt *time.Time `json:"cancelled_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) MeetLinkURL() string {
	if s == nil || s.MeetLink == nil {
		return ""
	}
	return *s.MeetLink
}
