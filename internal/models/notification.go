package models

import (
	"time"

	"github.com/google/uuid"
)

// Registro de cada tentativa de envio ao paciente
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_notifications_session_type" json:"session_id"`

	Type    string `gorm:"size:30;not null;index:idx_notifications_session_type" json:"type"`
	Channel string `gorm:"size:20;not null" json:"channel"`
	Status  string `gorm:"size:20;not null;index" json:"status"`

	ProviderMessageID string `gorm:"size:255" json:"provider_message_id"`
	Error             string `gorm:"type:text" json:"error"`

	SentAt    *time.Time `json:"sent_at"`
	CreatedAt time.Time  `json:"created_at"`
}
