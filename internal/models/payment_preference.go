package models

import (
	"time"

	"github.com/google/uuid"
)

// Link de pagamento gerado no gateway para uma sessão
type PaymentPreference struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`

	ProviderPreferenceID string    `gorm:"size:255;not null;uniqueIndex" json:"provider_preference_id"`
	PaymentLink          string    `gorm:"type:text;not null" json:"payment_link"`
	SandboxLink          string    `gorm:"type:text" json:"sandbox_link"`
	AmountCents          int64     `gorm:"not null" json:"amount_cents"`
	Currency             string    `gorm:"size:3;not null" json:"currency"`
	ExpiresAt            time.Time `gorm:"not null" json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (p *PaymentPreference) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}
