package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/psico-pay/internal/audit"
	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/infra/repository"
	"github.com/BruksfildServices01/psico-pay/internal/middleware"
	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/BruksfildServices01/psico-pay/internal/testutil"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/notify"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/ops"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/payment"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ======================================================
// WEBHOOK
// ======================================================

type confirmerMock struct {
	mock.Mock
}

func (m *confirmerMock) Execute(ctx context.Context, n payment.Notification) payment.Outcome {
	args := m.Called(ctx, n)
	return args.Get(0).(payment.Outcome)
}

func newWebhookRouter(confirm paymentConfirmer, secret string) *gin.Engine {
	h := NewWebhookHandler(confirm, secret, time.Second, nil)
	h.async = func(fn func()) { fn() }

	r := gin.New()
	r.POST("/webhook/mercadopago", h.MercadoPago)
	return r
}

func TestWebhook_ParsesJSONBody(t *testing.T) {
	m := &confirmerMock{}
	m.On("Execute", mock.Anything, payment.Notification{
		Type:   "payment",
		Action: "payment.updated",
		DataID: "123456",
	}).Return(payment.OutcomeConfirmed).Once()

	r := newWebhookRouter(m, "")
	body := `{"type":"payment","action":"payment.updated","data":{"id":123456}}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/mercadopago", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	m.AssertExpectations(t)
}

func TestWebhook_QueryStringFallback(t *testing.T) {
	m := &confirmerMock{}
	m.On("Execute", mock.Anything, payment.Notification{Type: "payment", DataID: "42"}).
		Return(payment.OutcomeNotApproved).Once()

	r := newWebhookRouter(m, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/mercadopago?topic=payment&id=42", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	m.AssertExpectations(t)
}

func TestWebhook_MalformedBodyStillAcked(t *testing.T) {
	m := &confirmerMock{}
	m.On("Execute", mock.Anything, payment.Notification{}).Return(payment.OutcomeIgnoredType).Once()

	r := newWebhookRouter(m, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/mercadopago", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusOK, w.Code)
	m.AssertExpectations(t)
}

func TestWebhook_Signature(t *testing.T) {
	const secret = "whsec"
	body := `{"type":"payment","action":"payment.created","data":{"id":"777"}}`

	t.Run("valid signature is processed", func(t *testing.T) {
		m := &confirmerMock{}
		m.On("Execute", mock.Anything, mock.Anything).Return(payment.OutcomeConfirmed).Once()
		r := newWebhookRouter(m, secret)

		req := httptest.NewRequest(http.MethodPost, "/webhook/mercadopago", strings.NewReader(body))
		req.Header.Set("x-request-id", "req-9")
		req.Header.Set("x-signature", "ts=1700000000,v1="+SignNotification(secret, "777", "req-9", "1700000000"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		m.AssertExpectations(t)
	})

	t.Run("bad signature is acked but dropped", func(t *testing.T) {
		m := &confirmerMock{}
		r := newWebhookRouter(m, secret)

		req := httptest.NewRequest(http.MethodPost, "/webhook/mercadopago", strings.NewReader(body))
		req.Header.Set("x-request-id", "req-9")
		req.Header.Set("x-signature", "ts=1700000000,v1=deadbeef")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
		m.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})

	t.Run("missing signature is dropped", func(t *testing.T) {
		m := &confirmerMock{}
		r := newWebhookRouter(m, secret)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/mercadopago", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		m.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})
}

func TestWebhook_PanicInProcessingIsContained(t *testing.T) {
	m := &confirmerMock{}
	m.On("Execute", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") })

	r := newWebhookRouter(m, "")
	w := httptest.NewRecorder()
	body := `{"type":"payment","data":{"id":"1"}}`

	assert.NotPanics(t, func() {
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/mercadopago", strings.NewReader(body)))
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhook_WaitDrainsAcknowledgedNotifications(t *testing.T) {
	release := make(chan struct{})
	m := &confirmerMock{}
	m.On("Execute", mock.Anything, payment.Notification{Type: "payment", DataID: "55"}).
		Run(func(mock.Arguments) { <-release }).
		Return(payment.OutcomeConfirmed).Once()

	h := NewWebhookHandler(m, "", time.Second, nil)
	r := gin.New()
	r.POST("/webhook/mercadopago", h.MercadoPago)

	w := httptest.NewRecorder()
	body := `{"type":"payment","data":{"id":"55"}}`
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/mercadopago", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Wait(short), context.DeadlineExceeded)

	close(release)
	require.NoError(t, h.Wait(context.Background()))
	m.AssertExpectations(t)

	// after draining, late notifications are processed before the ack returns
	m.On("Execute", mock.Anything, payment.Notification{Type: "payment", DataID: "56"}).
		Return(payment.OutcomeConfirmed).Once()
	w = httptest.NewRecorder()
	body = `{"type":"payment","data":{"id":"56"}}`
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/mercadopago", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)
	m.AssertExpectations(t)
}

func TestParseSignatureHeader(t *testing.T) {
	ts, v1 := parseSignatureHeader("ts=1704908010, v1=618c85345248dd820d5fd456117c2ab2ef8eda45a0282ff693eac24131a5e839")
	assert.Equal(t, "1704908010", ts)
	assert.Equal(t, "618c85345248dd820d5fd456117c2ab2ef8eda45a0282ff693eac24131a5e839", v1)

	ts, v1 = parseSignatureHeader("garbage")
	assert.Empty(t, ts)
	assert.Empty(t, v1)
}

// ======================================================
// PAGES / HEALTH
// ======================================================

func TestPaymentPages(t *testing.T) {
	h := NewPaymentPagesHandler("Lic. Laura Gómez")
	r := gin.New()
	r.SetHTMLTemplate(Templates())
	r.GET("/payment/success", h.Success)
	r.GET("/payment/failure", h.Failure)
	r.GET("/payment/pending", h.Pending)

	cases := map[string]string{
		"/payment/success": "¡Pago confirmado!",
		"/payment/failure": "El pago no se pudo completar",
		"/payment/pending": "Pago en proceso",
	}
	for path, title := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), title, path)
		assert.Contains(t, w.Body.String(), "Lic. Laura Gómez", path)
	}
}

type fakeScheduler struct {
	active    bool
	running   bool
	triggered int
}

func (f *fakeScheduler) IsActive() bool { return f.active }

func (f *fakeScheduler) IsRunning() bool { return f.running }

func (f *fakeScheduler) Stop() { f.active = false }

func (f *fakeScheduler) Start() error {
	f.active = true
	return nil
}

func (f *fakeScheduler) TryTrigger() bool {
	if f.running {
		return false
	}
	f.triggered++
	return true
}

func TestHealth(t *testing.T) {
	sched := &fakeScheduler{active: true, running: true}
	h := NewHealthHandler(sched)
	h.started = time.Now().Add(-90 * time.Second)

	r := gin.New()
	r.GET("/health", h.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.GreaterOrEqual(t, body.UptimeSeconds, int64(90))
	assert.True(t, body.Scheduler.Active)
	assert.True(t, body.Scheduler.Running)
}

// ======================================================
// OPS
// ======================================================

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type opsFixture struct {
	db        *gorm.DB
	router    *gin.Engine
	scheduler *fakeScheduler
	messenger *testutil.FakeMessenger
}

func newOpsFixture(t *testing.T) *opsFixture {
	t.Helper()

	gdb := testutil.NewDB(t)
	f := &opsFixture{
		db:        gdb,
		scheduler: &fakeScheduler{},
		messenger: &testutil.FakeMessenger{},
	}

	notifications := repository.NewNotificationGormRepository(gdb)
	payments := &testutil.FakePayments{Now: func() time.Time { return now }}
	dispatcher := audit.NewDispatcher(audit.New(gdb), nil)
	t.Cleanup(dispatcher.Close)

	uc := ops.New(ops.Deps{
		TherapistID:   uuid.New(),
		Sessions:      repository.NewSessionGormRepository(gdb),
		Notifications: notifications,
		Links:         payment.NewLinks(payments, repository.NewPaymentPreferenceGormRepository(gdb), time.Second, nil),
		Notifier:      notify.NewNotifier(f.messenger, notifications, time.UTC, time.Second, nil, nil),
		Audit:         dispatcher,
		Windows:       domain.DefaultWindows(),
		Clock:         func() time.Time { return now },
	})
	h := NewOpsHandler(uc, f.scheduler)

	r := gin.New()
	g := r.Group("/api/ops", func(c *gin.Context) {
		c.Set(middleware.ContextActor, "tester")
		c.Next()
	})
	g.POST("/run", h.Run)
	g.GET("/scheduler", h.SchedulerStatus)
	g.POST("/scheduler/start", h.StartScheduler)
	g.POST("/scheduler/stop", h.StopScheduler)
	g.GET("/sessions/upcoming", h.ListUpcoming)
	g.GET("/notifications/failed", h.ListFailedNotifications)
	g.POST("/sessions/:id/reset-reminder", h.ResetReminder)
	g.POST("/sessions/:id/confirm-payment", h.ConfirmPayment)
	g.POST("/sessions/:id/send-payment-link", h.SendPaymentLink)
	g.POST("/sessions/:id/send-reminder", h.SendReminder)
	g.POST("/sessions/:id/cancel", h.ChangeStatus(ops.ActionCancel))
	f.router = r
	return f
}

func (f *opsFixture) seed(t *testing.T, at time.Time) *models.Session {
	t.Helper()

	phone := "+5491122334455"
	p := models.Patient{TherapistID: uuid.New(), Name: "Ana", Phone: &phone}
	require.NoError(t, f.db.Create(&p).Error)

	link := "https://meet.google.com/abc"
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
	require.NoError(t, f.db.Omit("Patient").Create(&s).Error)
	return &s
}

func (f *opsFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestOps_ConfirmPayment(t *testing.T) {
	f := newOpsFixture(t)
	s := f.seed(t, now.Add(3*time.Hour))
	path := "/api/ops/sessions/" + s.ID.String() + "/confirm-payment"

	w := f.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Session struct {
			PaymentStatus string `json:"payment_status"`
			PatientPhone  string `json:"patient_phone"`
		} `json:"session"`
		ConfirmationSent bool `json:"confirmation_sent"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "paid", body.Session.PaymentStatus)
	assert.True(t, body.ConfirmationSent)
	assert.Equal(t, "+*********4455", body.Session.PatientPhone)
	assert.Len(t, f.messenger.Messages(), 1)

	w = f.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_paid", errorCode(t, w))
	assert.Len(t, f.messenger.Messages(), 1)
}

func TestOps_ErrorMapping(t *testing.T) {
	f := newOpsFixture(t)
	s := f.seed(t, now.Add(3*time.Hour))
	base := "/api/ops/sessions/" + s.ID.String()

	w := f.do(t, http.MethodPost, "/api/ops/sessions/not-a-uuid/confirm-payment", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_session_id", errorCode(t, w))

	w = f.do(t, http.MethodPost, "/api/ops/sessions/"+uuid.NewString()+"/confirm-payment", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session_not_found", errorCode(t, w))

	w = f.do(t, http.MethodPost, base+"/reset-reminder", map[string]string{"flag": "reminder_1h"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_flag", errorCode(t, w))

	w = f.do(t, http.MethodPost, base+"/reset-reminder", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", errorCode(t, w))

	w = f.do(t, http.MethodPost, base+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, base+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_state", errorCode(t, w))
}

func TestOps_ResetReminder(t *testing.T) {
	f := newOpsFixture(t)
	s := f.seed(t, now.Add(3*time.Hour))
	require.NoError(t, f.db.Model(&models.Session{}).Where("id = ?", s.ID).Update("reminder_24h_sent", true).Error)

	w := f.do(t, http.MethodPost, "/api/ops/sessions/"+s.ID.String()+"/reset-reminder", map[string]string{"flag": "reminder_24h"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.Session
	require.NoError(t, f.db.First(&got, "id = ?", s.ID).Error)
	assert.False(t, got.Reminder24hSent)
}

func TestOps_SendPaymentLink(t *testing.T) {
	f := newOpsFixture(t)
	s := f.seed(t, now.Add(30*time.Hour))

	w := f.do(t, http.MethodPost, "/api/ops/sessions/"+s.ID.String()+"/send-payment-link", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Sent bool `json:"sent"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Sent)
	assert.Equal(t, 1, f.messenger.Count("https://mp.example/checkout/"))
}

func TestOps_Lists(t *testing.T) {
	f := newOpsFixture(t)
	f.seed(t, now.Add(3*time.Hour))
	f.seed(t, now.Add(72*time.Hour))

	w := f.do(t, http.MethodGet, "/api/ops/sessions/upcoming?hours=24", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data  []map[string]any `json:"data"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	w = f.do(t, http.MethodGet, "/api/ops/sessions/upcoming?hours=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/ops/notifications/failed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Total)

	w = f.do(t, http.MethodGet, "/api/ops/notifications/failed?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOps_Scheduler(t *testing.T) {
	f := newOpsFixture(t)

	w := f.do(t, http.MethodPost, "/api/ops/run", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, f.scheduler.triggered)

	f.scheduler.running = true
	w = f.do(t, http.MethodPost, "/api/ops/run", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_running", errorCode(t, w))

	w = f.do(t, http.MethodPost, "/api/ops/scheduler/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st schedulerState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.Active)
	assert.True(t, st.Running)

	w = f.do(t, http.MethodPost, "/api/ops/scheduler/stop", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.False(t, st.Active)
}

// ======================================================
// AUDIT LOGS
// ======================================================

func TestAuditLogs_List(t *testing.T) {
	gdb := testutil.NewDB(t)
	therapistID := uuid.New()
	sessionID := uuid.New()

	rows := []models.AuditLog{
		{TherapistID: therapistID, Actor: "laura", Action: "confirm_payment", Entity: "session", EntityID: &sessionID},
		{TherapistID: therapistID, Actor: "opsctl", Action: "reset_reminder", Entity: "session", EntityID: &sessionID},
		{TherapistID: therapistID, Actor: "laura", Action: "cancel_session", Entity: "session"},
		{TherapistID: uuid.New(), Actor: "other", Action: "confirm_payment", Entity: "session"},
	}
	require.NoError(t, gdb.Create(&rows).Error)

	h := NewAuditLogsHandler(gdb, therapistID, time.UTC)
	r := gin.New()
	r.GET("/audit-logs", h.List)

	get := func(query string) (int, map[string]any) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit-logs"+query, nil))
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		return w.Code, body
	}

	code, body := get("")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["total"])

	_, body = get("?actor=laura")
	assert.EqualValues(t, 2, body["total"])

	_, body = get("?session_id=" + sessionID.String())
	assert.EqualValues(t, 2, body["total"])

	_, body = get("?limit=1&page=2")
	assert.EqualValues(t, 3, body["total"])
	assert.Len(t, body["logs"], 1)

	code, _ = get("?session_id=nope")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = get("?from=10/03/2025")
	assert.Equal(t, http.StatusBadRequest, code)
}
