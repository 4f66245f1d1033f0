package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/BruksfildServices01/psico-pay/internal/domain/calendar"
	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
)

type GoogleCalendarConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	CalendarID   string
}

// GoogleCalendar lists events of one calendar using an offline refresh token.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	log        *zap.Logger
}

var _ domain.CalendarGateway = (*GoogleCalendar)(nil)

// NewGoogleCalendar builds the client. Without a refresh token the caller
// must supply credentials or an HTTP client through opts.
func NewGoogleCalendar(
	ctx context.Context,
	cfg GoogleCalendarConfig,
	log *zap.Logger,
	opts ...option.ClientOption,
) (*GoogleCalendar, error) {

	if log == nil {
		log = zap.NewNop()
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}

	var all []option.ClientOption
	if cfg.RefreshToken != "" {
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarReadonlyScope},
		}
		ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
		all = append(all, option.WithTokenSource(ts))
	}
	all = append(all, opts...)

	svc, err := gcal.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("google calendar client: %w", err)
	}

	return &GoogleCalendar{svc: svc, calendarID: cfg.CalendarID, log: log}, nil
}

// ListEvents expands recurring events and returns them ordered by start.
func (g *GoogleCalendar) ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	var out []calendar.Event

	call := g.svc.Events.List(g.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(50)

	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			ev, ok := toEvent(item)
			if !ok {
				g.log.Debug("skipping calendar event without usable times", zap.String("event_id", item.Id))
				continue
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	return out, nil
}

func toEvent(item *gcal.Event) (calendar.Event, bool) {
	if item == nil || item.Status == "cancelled" {
		return calendar.Event{}, false
	}
	start, ok := eventTime(item.Start)
	if !ok {
		return calendar.Event{}, false
	}
	end, ok := eventTime(item.End)
	if !ok {
		return calendar.Event{}, false
	}
	return calendar.Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Start:       start,
		End:         end,
		MeetLink:    meetLink(item),
	}, true
}

func eventTime(dt *gcal.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		return t, err == nil
	}
	if dt.Date != "" {
		t, err := time.Parse("2006-01-02", dt.Date)
		return t, err == nil
	}
	return time.Time{}, false
}

func meetLink(item *gcal.Event) string {
	if item.HangoutLink != "" {
		return item.HangoutLink
	}
	if item.ConferenceData == nil {
		return ""
	}
	for _, ep := range item.ConferenceData.EntryPoints {
		if ep != nil && ep.EntryPointType == "video" && ep.Uri != "" {
			return ep.Uri
		}
	}
	return ""
}
