package calendar

import (
	"math"
	"regexp"
	"strings"

	"github.com/BruksfildServices01/psico-pay/internal/validators"
)

type Rejection string

const (
	RejectMissingID     Rejection = "missing_id"
	RejectTitle         Rejection = "title_mismatch"
	RejectNoMeetLink    Rejection = "missing_meet_link"
	RejectDuration      Rejection = "duration_out_of_range"
	RejectNoPatientName Rejection = "missing_patient_name"
)

var (
	sessionTitle = regexp.MustCompile(`(?i)sesi[oó]n`)
	patientName  = regexp.MustCompile(`(?i)sesi[oó]n\s*[-:]\s*(.+)`)
)

type ParserConfig struct {
	MinDurationMinutes int
	MaxDurationMinutes int
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{MinDurationMinutes: 30, MaxDurationMinutes: 90}
}

// Parser decides which calendar events are therapy sessions.
// It never fails: every event is either accepted or rejected with a reason.
type Parser struct {
	cfg ParserConfig
}

func NewParser(cfg ParserConfig) *Parser {
	return &Parser{cfg: cfg}
}

// IsTherapySession applies the title, meeting link and duration filters.
func (p *Parser) IsTherapySession(ev Event) (bool, Rejection) {
	if strings.TrimSpace(ev.ID) == "" {
		return false, RejectMissingID
	}
	if !sessionTitle.MatchString(ev.Title) {
		return false, RejectTitle
	}
	if strings.TrimSpace(ev.MeetLink) == "" {
		return false, RejectNoMeetLink
	}
	d := DurationMinutes(ev)
	if d < p.cfg.MinDurationMinutes || d > p.cfg.MaxDurationMinutes {
		return false, RejectDuration
	}
	return true, ""
}

// Parse turns an accepted event into an Intent.
func (p *Parser) Parse(ev Event) (Intent, Rejection) {
	if ok, reason := p.IsTherapySession(ev); !ok {
		return Intent{}, reason
	}

	name := ExtractPatientName(ev.Title)
	if name == "" {
		return Intent{}, RejectNoPatientName
	}

	phone, _ := validators.FindPhone(ev.Description)

	return Intent{
		CalendarEventID: ev.ID,
		PatientName:     name,
		Phone:           phone,
		ScheduledAt:     ev.Start,
		DurationMinutes: DurationMinutes(ev),
		MeetLink:        strings.TrimSpace(ev.MeetLink),
	}, ""
}

// ExtractPatientName returns the text after "Sesión -" or "Sesión:".
func ExtractPatientName(title string) string {
	m := patientName.FindStringSubmatch(title)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func DurationMinutes(ev Event) int {
	return int(math.Round(ev.End.Sub(ev.Start).Minutes()))
}
