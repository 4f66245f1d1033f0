package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/httperr"
)

type SendReminderResult struct {
	Flag    string `json:"flag"`
	Sent    bool   `json:"sent"`
	Skipped string `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendReminder sends one reminder now, ignoring its time window, and latches
// the matching flag. A message already delivered under a latched flag is not
// sent again until reset-reminder clears it.
type SendReminder struct {
	*base
}

var reminderKinds = map[domain.Flag]domain.NotificationType{
	domain.FlagReminder24h: domain.NotificationReminder24h,
	domain.FlagReminder2h:  domain.NotificationReminder2h,
	domain.FlagMeetLink:    domain.NotificationMeetLink,
}

func (uc *SendReminder) Execute(
	ctx context.Context,
	actor string,
	sessionID uuid.UUID,
	flagName string,
) (*SendReminderResult, error) {

	flag, err := domain.ParseFlag(flagName)
	if err != nil {
		return nil, err
	}
	s, err := uc.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if domain.Status(s.Status) != domain.StatusScheduled {
		return nil, httperr.ErrBusiness("invalid_state")
	}

	if flag == domain.FlagMeetLink && !domain.IsPaid(s) {
		return nil, httperr.ErrBusiness("invalid_state")
	}

	kind := reminderKinds[flag]
	if flag.Latched(s) {
		sent, err := uc.deps.Notifications.WasNotificationSent(ctx, s.ID, kind)
		if err != nil {
			return nil, fmt.Errorf("check %s notification: %w", kind, err)
		}
		if sent {
			return nil, httperr.ErrBusiness("already_sent")
		}
	}

	var (
		action domain.Action
		link   string
	)

	switch flag {
	case domain.FlagReminder24h:
		action = domain.Decide24h(s)
		if !action.Skipped() {
			if domain.IsPaid(s) {
				return nil, httperr.ErrBusiness("already_paid")
			}
			pref, err := uc.deps.Links.Ensure(ctx, s, uc.deps.Clock())
			if err != nil {
				return nil, err
			}
			link = pref.PaymentLink
		}

	case domain.FlagReminder2h:
		pref, err := uc.deps.Links.Current(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("find payment preference: %w", err)
		}
		action = domain.Decide2h(s, pref)
		if pref != nil {
			link = pref.PaymentLink
		}

	case domain.FlagMeetLink:
		action = domain.DecideMeetLink(s)
	}

	out := &SendReminderResult{Flag: string(flag)}

	var logErr error
	if action.Skipped() {
		out.Skipped = string(action.Skip)
		logErr = uc.deps.Notifier.RecordSkip(ctx, s, kind, action.Skip)
	} else {
		var res domain.SendResult
		res, logErr = uc.deps.Notifier.Deliver(ctx, s, kind, action.Message, link)
		out.Sent = res.Success
		out.Error = res.Error
	}

	// a mensagem pode ter saído mesmo sem registro; o flag fecha sempre
	var latchErr error
	if err := uc.deps.Sessions.MarkFlag(ctx, s.ID, flag); err != nil {
		latchErr = fmt.Errorf("mark %s: %w", flag, err)
	}

	uc.audit(actor, "reminder_sent", s.ID, out)

	if err := errors.Join(logErr, latchErr); err != nil {
		return nil, err
	}
	return out, nil
}

