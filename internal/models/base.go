package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (t *Therapist) BeforeCreate(_ *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

func (p *Patient) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (s *Session) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func (p *PaymentPreference) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

