package session

import (
	"github.com/BruksfildServices01/psico-pay/internal/httperr"
	"github.com/BruksfildServices01/psico-pay/internal/models"
)

// Flag identifies one of the per-session notification latches.
type Flag string

const (
	FlagReminder24h Flag = "reminder_24h"
	FlagReminder2h  Flag = "reminder_2h"
	FlagMeetLink    Flag = "meet_link"
)

func ParseFlag(s string) (Flag, error) {
	switch f := Flag(s); f {
	case FlagReminder24h, FlagReminder2h, FlagMeetLink:
		return f, nil
	}
	return "", httperr.ErrBusiness("invalid_flag")
}

// Column is the sessions table column that backs the flag.
func (f Flag) Column() string {
	switch f {
	case FlagReminder24h:
		return "reminder_24h_sent"
	case FlagReminder2h:
		return "reminder_2h_sent"
	case FlagMeetLink:
		return "meet_link_sent"
	}
	return ""
}

func (f Flag) Latched(s *models.Session) bool {
	switch f {
	case FlagReminder24h:
		return s.Reminder24hSent
	case FlagReminder2h:
		return s.Reminder2hSent
	case FlagMeetLink:
		return s.MeetLinkSent
	}
	return false
}
