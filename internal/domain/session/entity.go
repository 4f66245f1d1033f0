package session

import (
	"time"

	"github.com/BruksfildServices01/psico-pay/internal/models"
)

// ===============================
// Domain Actions
// ===============================

// Cancel also closes every notification flag so no sweep picks the session up.
func Cancel(s *models.Session, now time.Time) error {
	if err := CanCancel(Status(s.Status)); err != nil {
		return err
	}

	s.Status = string(StatusCancelled)
	s.CancelledAt = &now
	s.Reminder24hSent = true
	s.Reminder2hSent = true
	s.MeetLinkSent = true
	return nil
}

func Complete(s *models.Session, now time.Time) error {
	if err := CanComplete(Status(s.Status)); err != nil {
		return err
	}

	s.Status = string(StatusCompleted)
	s.CompletedAt = &now
	return nil
}

func MarkNoShow(s *models.Session, now time.Time) error {
	if err := CanMarkNoShow(Status(s.Status)); err != nil {
		return err
	}

	s.Status = string(StatusNoShow)
	s.CompletedAt = &now
	return nil
}

func IsPaid(s *models.Session) bool {
	return PaymentStatus(s.PaymentStatus) == PaymentPaid
}
