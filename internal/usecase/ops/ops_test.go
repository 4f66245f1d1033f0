package ops

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/psico-pay/internal/audit"
	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/httperr"
	"github.com/BruksfildServices01/psico-pay/internal/infra/repository"
	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/BruksfildServices01/psico-pay/internal/testutil"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/notify"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/payment"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	uc        *Usecases
	audit     *audit.Dispatcher
	payments  *testutil.FakePayments
	messenger *testutil.FakeMessenger
}

// brokenNotifications records nothing, as when the notifications table is
// unreachable after the message went out.
type brokenNotifications struct {
	domain.NotificationRepository
}

func (brokenNotifications) LogSuccess(context.Context, uuid.UUID, domain.NotificationType, string) error {
	return errors.New("notifications table unavailable")
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, nil)
}

func newFixtureWith(t *testing.T, wrap func(domain.NotificationRepository) domain.NotificationRepository) *fixture {
	t.Helper()

	gdb := testutil.NewDB(t)
	f := &fixture{
		db:        gdb,
		payments:  &testutil.FakePayments{Now: func() time.Time { return now }},
		messenger: &testutil.FakeMessenger{},
		audit:     audit.NewDispatcher(audit.New(gdb), nil),
	}
	var notifications domain.NotificationRepository = repository.NewNotificationGormRepository(gdb)
	if wrap != nil {
		notifications = wrap(notifications)
	}

	f.uc = New(Deps{
		TherapistID:   uuid.New(),
		Sessions:      repository.NewSessionGormRepository(gdb),
		Notifications: notifications,
		Links:         payment.NewLinks(f.payments, repository.NewPaymentPreferenceGormRepository(gdb), time.Second, nil),
		Notifier:      notify.NewNotifier(f.messenger, notifications, time.UTC, time.Second, nil, nil),
		Audit:         f.audit,
		Windows:       domain.DefaultWindows(),
		Clock:         func() time.Time { return now },
	})
	return f
}

func (f *fixture) seed(t *testing.T, phone string, at time.Time, mutate func(*models.Session)) *models.Session {
	t.Helper()

	p := models.Patient{TherapistID: uuid.New(), Name: "Ana"}
	if phone != "" {
		p.Phone = &phone
	}
	require.NoError(t, f.db.Create(&p).Error)

	link := "https://meet.google.com/xyz"
	s := models.Session{
		TherapistID:     p.TherapistID,
		PatientID:       p.ID,
		CalendarEventID: uuid.NewString(),
		ScheduledAt:     at,
		DurationMinutes: 50,
		AmountCents:     1500000,
		Currency:        "ARS",
		Status:          string(domain.StatusScheduled),
		PaymentStatus:   string(domain.PaymentPending),
		MeetLink:        &link,
	}
	if mutate != nil {
		mutate(&s)
	}
	require.NoError(t, f.db.Omit("Patient").Create(&s).Error)
	return &s
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) models.Session {
	t.Helper()
	var s models.Session
	require.NoError(t, f.db.First(&s, "id = ?", id).Error)
	return s
}

func (f *fixture) auditActions(t *testing.T) []string {
	t.Helper()
	f.audit.Close()
	var rows []models.AuditLog
	require.NoError(t, f.db.Order("created_at").Find(&rows).Error)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Action)
	}
	return out
}

func TestResetReminder(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, "+5491122334455", now.Add(time.Hour), func(s *models.Session) {
		s.Reminder24hSent = true
		s.Reminder2hSent = true
	})
	ctx := context.Background()

	require.NoError(t, f.uc.ResetReminder.Execute(ctx, "admin", s.ID, "reminder_2h"))
	got := f.reload(t, s.ID)
	assert.True(t, got.Reminder24hSent)
	assert.False(t, got.Reminder2hSent)

	err := f.uc.ResetReminder.Execute(ctx, "admin", s.ID, "reminder_1h")
	assert.True(t, httperr.IsBusiness(err, "invalid_flag"))

	err = f.uc.ResetReminder.Execute(ctx, "admin", uuid.New(), "meet_link")
	assert.True(t, httperr.IsBusiness(err, "session_not_found"))

	assert.Equal(t, []string{"reminder_reset"}, f.auditActions(t))
}

func TestConfirmPayment_Manual(t *testing.T) {
	t.Run("outside meet window only confirms", func(t *testing.T) {
		f := newFixture(t)
		s := f.seed(t, "+5491122334455", now.Add(3*time.Hour), nil)

		out, err := f.uc.ConfirmPayment.Execute(context.Background(), "admin", s.ID)
		require.NoError(t, err)
		assert.True(t, out.ConfirmationSent)
		assert.False(t, out.MeetLinkSent)

		got := f.reload(t, s.ID)
		assert.Equal(t, string(domain.PaymentPaid), got.PaymentStatus)
		assert.Equal(t, ManualPaymentID, *got.PaymentID)
		assert.False(t, got.MeetLinkSent)
		assert.Len(t, f.messenger.Messages(), 1)

		_, err = f.uc.ConfirmPayment.Execute(context.Background(), "admin", s.ID)
		assert.True(t, httperr.IsBusiness(err, "already_paid"))
	})

	t.Run("inside meet window also sends the link", func(t *testing.T) {
		f := newFixture(t)
		s := f.seed(t, "+5491122334455", now.Add(10*time.Minute), nil)

		out, err := f.uc.ConfirmPayment.Execute(context.Background(), "admin", s.ID)
		require.NoError(t, err)
		assert.True(t, out.MeetLinkSent)
		assert.True(t, f.reload(t, s.ID).MeetLinkSent)
		assert.Equal(t, 1, f.messenger.Count("https://meet.google.com/xyz"))
	})
}

func TestSendPaymentLink(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, "+5491122334455", now.Add(5*time.Hour), nil)
	ctx := context.Background()

	first, err := f.uc.SendPaymentLink.Execute(ctx, "admin", s.ID)
	require.NoError(t, err)
	assert.True(t, first.Sent)

	second, err := f.uc.SendPaymentLink.Execute(ctx, "admin", s.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Preference.ProviderPreferenceID, second.Preference.ProviderPreferenceID)

	var count int64
	require.NoError(t, f.db.Model(&models.PaymentPreference{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.True(t, f.reload(t, s.ID).Reminder24hSent)

	noPhone := f.seed(t, "", now.Add(5*time.Hour), nil)
	_, err = f.uc.SendPaymentLink.Execute(ctx, "admin", noPhone.ID)
	assert.True(t, httperr.IsBusiness(err, "no_phone"))
}

func TestSendReminder(t *testing.T) {
	ctx := context.Background()

	t.Run("meet link requires payment", func(t *testing.T) {
		f := newFixture(t)
		s := f.seed(t, "+5491122334455", now.Add(3*time.Hour), nil)

		_, err := f.uc.SendReminder.Execute(ctx, "admin", s.ID, "meet_link")
		assert.True(t, httperr.IsBusiness(err, "invalid_state"))
	})

	t.Run("24h reminder ignores the window", func(t *testing.T) {
		f := newFixture(t)
		s := f.seed(t, "+5491122334455", now.Add(3*time.Hour), nil)

		out, err := f.uc.SendReminder.Execute(ctx, "admin", s.ID, "reminder_24h")
		require.NoError(t, err)
		assert.True(t, out.Sent)
		assert.True(t, f.reload(t, s.ID).Reminder24hSent)
		assert.Equal(t, 1, f.messenger.Count("https://mp.example/checkout/pref-1"))
	})

	t.Run("2h reminder without preference is skipped", func(t *testing.T) {
		f := newFixture(t)
		s := f.seed(t, "+5491122334455", now.Add(3*time.Hour), nil)

		out, err := f.uc.SendReminder.Execute(ctx, "admin", s.ID, "reminder_2h")
		require.NoError(t, err)
		assert.False(t, out.Sent)
		assert.Equal(t, string(domain.SkipMissingPreference), out.Skipped)
		assert.True(t, f.reload(t, s.ID).Reminder2hSent)
	})

	t.Run("flag latches when the attempt cannot be recorded", func(t *testing.T) {
		f := newFixtureWith(t, func(r domain.NotificationRepository) domain.NotificationRepository {
			return brokenNotifications{r}
		})
		s := f.seed(t, "+5491122334455", now.Add(3*time.Hour), nil)

		_, err := f.uc.SendReminder.Execute(ctx, "admin", s.ID, "reminder_24h")
		assert.ErrorContains(t, err, "notifications table unavailable")
		assert.Len(t, f.messenger.Messages(), 1)
		assert.True(t, f.reload(t, s.ID).Reminder24hSent)
	})

	t.Run("delivered reminder is not resent until reset", func(t *testing.T) {
		f := newFixture(t)
		s := f.seed(t, "+5491122334455", now.Add(3*time.Hour), nil)

		_, err := f.uc.SendReminder.Execute(ctx, "admin", s.ID, "reminder_24h")
		require.NoError(t, err)

		_, err = f.uc.SendReminder.Execute(ctx, "admin", s.ID, "reminder_24h")
		assert.True(t, httperr.IsBusiness(err, "already_sent"))
		assert.Len(t, f.messenger.Messages(), 1)

		require.NoError(t, f.uc.ResetReminder.Execute(ctx, "admin", s.ID, "reminder_24h"))
		out, err := f.uc.SendReminder.Execute(ctx, "admin", s.ID, "reminder_24h")
		require.NoError(t, err)
		assert.True(t, out.Sent)
		assert.Len(t, f.messenger.Messages(), 2)
	})

	t.Run("latched flag without a delivery can be sent", func(t *testing.T) {
		f := newFixture(t)
		s := f.seed(t, "+5491122334455", now.Add(3*time.Hour), func(s *models.Session) {
			s.Reminder24hSent = true
		})

		out, err := f.uc.SendReminder.Execute(ctx, "admin", s.ID, "reminder_24h")
		require.NoError(t, err)
		assert.True(t, out.Sent)
	})
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t, "+5491122334455", now.Add(3*time.Hour), nil)

	got, err := f.uc.ChangeStatus.Execute(ctx, "admin", s.ID, ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCancelled), got.Status)

	stored := f.reload(t, s.ID)
	assert.True(t, stored.Reminder24hSent)
	assert.True(t, stored.Reminder2hSent)
	assert.True(t, stored.MeetLinkSent)
	assert.NotNil(t, stored.CancelledAt)

	_, err = f.uc.ChangeStatus.Execute(ctx, "admin", s.ID, ActionComplete)
	assert.True(t, httperr.IsBusiness(err, "invalid_state"))

	other := f.seed(t, "+5491122334466", now.Add(-time.Hour), nil)
	got, err = f.uc.ChangeStatus.Execute(ctx, "admin", other.ID, ActionNoShow)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusNoShow), got.Status)

	_, err = f.uc.ChangeStatus.Execute(ctx, "admin", other.ID, StatusAction("archive"))
	assert.True(t, httperr.IsBusiness(err, "invalid_action"))

	assert.Equal(t, []string{"session_cancelled", "session_no_show"}, f.auditActions(t))
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t, "", now.Add(2*time.Hour), nil)
	f.seed(t, "", now.Add(72*time.Hour), nil)

	upcoming, err := f.uc.ListUpcoming.Execute(ctx, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, s.ID, upcoming[0].ID)

	_, err = f.uc.SendReminder.Execute(ctx, "admin", s.ID, "reminder_24h")
	require.NoError(t, err)

	failed, err := f.uc.ListFailed.Execute(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, string(domain.SkipInvalidPhone), failed[0].Error)
}
