package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/models"
)

// ======================================================
// 24h: lembrete de pagamento
// ======================================================

func (j *Job) sweep24h(ctx context.Context, now time.Time) (int, error) {
	w := j.cfg.Windows.Reminder24h
	due, err := j.sessions.SessionsNeeding24hReminder(ctx, now, w)
	if err != nil {
		return 0, fmt.Errorf("query 24h reminders: %w", err)
	}

	var done atomic.Int64
	j.forEach(ctx, "reminder_24h", due, func(ctx context.Context, s *models.Session) error {
		if !domain.Needs24hReminder(s, now, w) {
			return nil
		}
		if err := j.remind24h(ctx, s, now); err != nil {
			return err
		}
		done.Add(1)
		return nil
	})
	return int(done.Load()), nil
}

func (j *Job) remind24h(ctx context.Context, s *models.Session, now time.Time) error {
	action := domain.Decide24h(s)
	if action.Skipped() {
		return j.skip(ctx, s, "reminder_24h", domain.NotificationReminder24h, domain.FlagReminder24h, action.Skip)
	}

	// Falha no gateway não fecha a flag: a próxima execução tenta de novo
	pref, err := j.links.Ensure(ctx, s, now)
	if err != nil {
		return err
	}

	_, logErr := j.notifier.Deliver(ctx, s, domain.NotificationReminder24h, action.Message, pref.PaymentLink)
	return errors.Join(logErr, j.latch(ctx, s, domain.FlagReminder24h))
}

// ======================================================
// 2h: cortesia ou cobrança
// ======================================================

func (j *Job) sweep2h(ctx context.Context, now time.Time) (int, error) {
	w := j.cfg.Windows.Reminder2h
	due, err := j.sessions.SessionsNeeding2hReminder(ctx, now, w)
	if err != nil {
		return 0, fmt.Errorf("query 2h reminders: %w", err)
	}

	var done atomic.Int64
	j.forEach(ctx, "reminder_2h", due, func(ctx context.Context, s *models.Session) error {
		if !domain.Needs2hReminder(s, now, w) {
			return nil
		}
		if err := j.remind2h(ctx, s); err != nil {
			return err
		}
		done.Add(1)
		return nil
	})
	return int(done.Load()), nil
}

func (j *Job) remind2h(ctx context.Context, s *models.Session) error {
	var pref *models.PaymentPreference
	if !domain.IsPaid(s) {
		var err error
		pref, err = j.links.Current(ctx, s)
		if err != nil {
			return fmt.Errorf("find payment preference: %w", err)
		}
	}

	action := domain.Decide2h(s, pref)
	if action.Skipped() {
		return j.skip(ctx, s, "reminder_2h", domain.NotificationReminder2h, domain.FlagReminder2h, action.Skip)
	}

	link := ""
	if pref != nil {
		link = pref.PaymentLink
	}
	_, logErr := j.notifier.Deliver(ctx, s, domain.NotificationReminder2h, action.Message, link)
	return errors.Join(logErr, j.latch(ctx, s, domain.FlagReminder2h))
}

// ======================================================
// 15min: link da videochamada
// ======================================================

func (j *Job) sweepMeetLinks(ctx context.Context, now time.Time) (int, error) {
	w := j.cfg.Windows.MeetLink
	due, err := j.sessions.SessionsNeedingMeetLink(ctx, now, w)
	if err != nil {
		return 0, fmt.Errorf("query meet links: %w", err)
	}

	var done atomic.Int64
	j.forEach(ctx, "meet_link", due, func(ctx context.Context, s *models.Session) error {
		if !domain.NeedsMeetLink(s, now, w) {
			return nil
		}
		if err := j.sendMeetLink(ctx, s); err != nil {
			return err
		}
		done.Add(1)
		return nil
	})
	return int(done.Load()), nil
}

func (j *Job) sendMeetLink(ctx context.Context, s *models.Session) error {
	action := domain.DecideMeetLink(s)
	if action.Skipped() {
		return j.skip(ctx, s, "meet_link", domain.NotificationMeetLink, domain.FlagMeetLink, action.Skip)
	}

	_, logErr := j.notifier.Deliver(ctx, s, domain.NotificationMeetLink, action.Message, "")
	return errors.Join(logErr, j.latch(ctx, s, domain.FlagMeetLink))
}

// ======================================================
// helpers
// ======================================================

func (j *Job) skip(
	ctx context.Context,
	s *models.Session,
	sweep string,
	kind domain.NotificationType,
	flag domain.Flag,
	reason domain.SkipReason,
) error {
	j.metrics.SweepSkipped(sweep, string(reason))
	logErr := j.notifier.RecordSkip(ctx, s, kind, reason)
	return errors.Join(logErr, j.latch(ctx, s, flag))
}

func (j *Job) latch(ctx context.Context, s *models.Session, flag domain.Flag) error {
	if err := j.sessions.MarkFlag(ctx, s.ID, flag); err != nil {
		return fmt.Errorf("mark %s: %w", flag, err)
	}
	return nil
}
