package session

import (
	"github.com/BruksfildServices01/psico-pay/internal/messages"
	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/BruksfildServices01/psico-pay/internal/validators"
)

type SkipReason string

const (
	SkipInvalidPhone      SkipReason = "invalid_phone"
	SkipMissingMeetLink   SkipReason = "missing_meet_link"
	SkipMissingPreference SkipReason = "missing_payment_preference"
)

// Action is what a sweep should do with one eligible session.
// Either Message is set (send it) or Skip is set (latch without sending).
type Action struct {
	Message messages.Kind
	Skip    SkipReason
}

func (a Action) Skipped() bool { return a.Skip != "" }

func send(kind messages.Kind) Action { return Action{Message: kind} }

func skip(reason SkipReason) Action { return Action{Skip: reason} }

func Decide24h(s *models.Session) Action {
	if !validators.IsValidPhone(s.Patient.PhoneNumber()) {
		return skip(SkipInvalidPhone)
	}
	return send(messages.PaymentReminder)
}

// Decide2h picks the courtesy text for paid sessions and the late payment
// text otherwise. pref is the session's existing payment link, if any.
func Decide2h(s *models.Session, pref *models.PaymentPreference) Action {
	if !validators.IsValidPhone(s.Patient.PhoneNumber()) {
		return skip(SkipInvalidPhone)
	}
	if IsPaid(s) {
		return send(messages.CourtesyReminder)
	}
	if pref == nil {
		return skip(SkipMissingPreference)
	}
	return send(messages.LatePaymentReminder)
}

func DecideMeetLink(s *models.Session) Action {
	if !validators.IsValidPhone(s.Patient.PhoneNumber()) {
		return skip(SkipInvalidPhone)
	}
	if s.MeetLinkURL() == "" {
		return skip(SkipMissingMeetLink)
	}
	return send(messages.MeetLink)
}
