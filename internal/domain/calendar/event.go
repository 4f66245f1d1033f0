package calendar

import "time"

// Event is the provider-neutral view of a calendar entry.
type Event struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	MeetLink    string
}

// Intent is a session candidate extracted from an accepted event.
type Intent struct {
	CalendarEventID string
	PatientName     string
	Phone           string
	ScheduledAt     time.Time
	DurationMinutes int
	MeetLink        string
}
