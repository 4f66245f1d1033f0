package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/BruksfildServices01/psico-pay/internal/validators"
)

type SessionDTO struct {
	ID              uuid.UUID `json:"id"`
	CalendarEventID string    `json:"calendar_event_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	PatientName     string    `json:"patient_name"`
	PatientPhone    string    `json:"patient_phone,omitempty"`
	HasMeetLink     bool      `json:"has_meet_link"`
	Reminder24hSent bool      `json:"reminder_24h_sent"`
	Reminder2hSent  bool      `json:"reminder_2h_sent"`
	MeetLinkSent    bool      `json:"meet_link_sent"`
}

// NewSessionDTO masks the patient phone.
func NewSessionDTO(s *models.Session) SessionDTO {
	return SessionDTO{
		ID:              s.ID,
		CalendarEventID: s.CalendarEventID,
		ScheduledAt:     s.ScheduledAt,
		DurationMinutes: s.DurationMinutes,
		AmountCents:     s.AmountCents,
		Currency:        s.Currency,
		Status:          s.Status,
		PaymentStatus:   s.PaymentStatus,
		PatientName:     s.Patient.Name,
		PatientPhone:    validators.MaskPhone(s.Patient.PhoneNumber()),
		HasMeetLink:     s.MeetLinkURL() != "",
		Reminder24hSent: s.Reminder24hSent,
		Reminder2hSent:  s.Reminder2hSent,
		MeetLinkSent:    s.MeetLinkSent,
	}
}

func NewSessionDTOs(sessions []models.Session) []SessionDTO {
	out := make([]SessionDTO, 0, len(sessions))
	for i := range sessions {
		out = append(out, NewSessionDTO(&sessions[i]))
	}
	return out
}
