package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BruksfildServices01/psico-pay/internal/domain/calendar"
	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/BruksfildServices01/psico-pay/internal/validators"
)

// syncCalendar pulls events in [now, now+lookahead] and materializes the
// therapy sessions among them. It returns how many sessions were created.
func (j *Job) syncCalendar(ctx context.Context, now time.Time) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, j.cfg.GatewayTimeout)
	events, err := j.calendar.ListEvents(callCtx, now, now.Add(j.cfg.LookAhead))
	cancel()
	if err != nil {
		return 0, fmt.Errorf("list calendar events: %w", err)
	}

	created := 0
	for _, ev := range events {
		intent, reason := j.parser.Parse(ev)
		if reason != "" {
			j.metrics.CalendarEvent("rejected")
			j.log.Debug("calendar event ignored",
				zap.String("event_id", ev.ID),
				zap.String("reason", string(reason)),
			)
			continue
		}
		j.metrics.CalendarEvent("accepted")

		err := guard(func() error {
			isNew, err := j.materialize(ctx, intent)
			if isNew {
				created++
			}
			return err
		})
		if err != nil {
			j.log.Error("calendar event sync failed",
				zap.String("event_id", ev.ID),
				zap.Error(err),
			)
		}
	}

	return created, nil
}

func (j *Job) materialize(ctx context.Context, in calendar.Intent) (bool, error) {
	patient, _, err := j.patients.FindOrCreate(ctx, j.cfg.TherapistID, in.PatientName, in.Phone)
	if err != nil {
		return false, err
	}

	meetLink := in.MeetLink
	s, created, err := j.sessions.FindOrCreate(ctx, &models.Session{
		TherapistID:     j.cfg.TherapistID,
		PatientID:       patient.ID,
		CalendarEventID: in.CalendarEventID,
		ScheduledAt:     in.ScheduledAt,
		DurationMinutes: in.DurationMinutes,
		AmountCents:     j.cfg.AmountCents,
		Currency:        j.cfg.Currency,
		Status:          string(domain.InitialStatus()),
		PaymentStatus:   string(domain.PaymentPending),
		MeetLink:        &meetLink,
	})
	if err != nil {
		return false, err
	}

	if created {
		j.log.Info("session created",
			zap.String("session_id", s.ID.String()),
			zap.String("event_id", in.CalendarEventID),
			zap.String("patient", in.PatientName),
			zap.String("phone", validators.MaskPhone(in.Phone)),
			zap.Time("scheduled_at", s.ScheduledAt),
		)
	}
	return created, nil
}
