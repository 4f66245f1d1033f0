package models

import (
	"time"

	"github.com/google/uuid"
)

// Consultório (tenant). Hoje existe um único registro, semeado pela config.
type Therapist struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string    `gorm:"size:100;not null" json:"name"`
	Slug              string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Timezone          string    `gorm:"size:64;not null" json:"timezone"`
	SessionPriceCents int64     `gorm:"not null" json:"session_price_cents"`
	Currency          string    `gorm:"size:3;not null" json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
