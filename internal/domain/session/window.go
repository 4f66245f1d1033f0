package session

import (
	"time"

	"github.com/BruksfildServices01/psico-pay/internal/models"
)

// Window is a band of minutes before a session start, bounds inclusive.
type Window struct {
	MinMinutes int
	MaxMinutes int
}

// Bounds returns the scheduled_at range that falls inside the window at now.
func (w Window) Bounds(now time.Time) (from, to time.Time) {
	return now.Add(time.Duration(w.MinMinutes) * time.Minute),
		now.Add(time.Duration(w.MaxMinutes) * time.Minute)
}

func (w Window) Contains(now, scheduledAt time.Time) bool {
	from, to := w.Bounds(now)
	return !scheduledAt.Before(from) && !scheduledAt.After(to)
}

type Windows struct {
	Reminder24h Window
	Reminder2h  Window
	MeetLink    Window
}

func DefaultWindows() Windows {
	return Windows{
		Reminder24h: Window{MinMinutes: 23 * 60, MaxMinutes: 24 * 60},
		Reminder2h:  Window{MinMinutes: 60, MaxMinutes: 120},
		MeetLink:    Window{MinMinutes: 0, MaxMinutes: 15},
	}
}

// ===============================
// Sweep eligibility
// ===============================

func Needs24hReminder(s *models.Session, now time.Time, w Window) bool {
	return !s.Reminder24hSent && w.Contains(now, s.ScheduledAt)
}

// Needs2hReminder only fires after the 24h sweep has latched.
func Needs2hReminder(s *models.Session, now time.Time, w Window) bool {
	return s.Reminder24hSent && !s.Reminder2hSent && w.Contains(now, s.ScheduledAt)
}

func NeedsMeetLink(s *models.Session, now time.Time, w Window) bool {
	return IsPaid(s) && !s.MeetLinkSent && w.Contains(now, s.ScheduledAt)
}
