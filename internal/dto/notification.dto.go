package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/psico-pay/internal/models"
)

type NotificationDTO struct {
	ID        uuid.UUID  `json:"id"`
	SessionID uuid.UUID  `json:"session_id"`
	Type      string     `json:"type"`
	Channel   string     `json:"channel"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	SentAt    *time.Time `json:"sent_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewNotificationDTOs(list []models.Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(list))
	for _, n := range list {
		out = append(out, NotificationDTO{
			ID:        n.ID,
			SessionID: n.SessionID,
			Type:      n.Type,
			Channel:   n.Channel,
			Status:    n.Status,
			Error:     n.Error,
			SentAt:    n.SentAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
