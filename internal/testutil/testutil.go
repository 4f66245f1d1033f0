// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BruksfildServices01/psico-pay/internal/db"
	"github.com/BruksfildServices01/psico-pay/internal/domain/calendar"
	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
)

// NewDB opens an isolated in-memory sqlite database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// ======================================================
// Gateways
// ======================================================

type FakeCalendar struct {
	Events []calendar.Event
	Err    error
}

func (f *FakeCalendar) ListEvents(_ context.Context, _, _ time.Time) ([]calendar.Event, error) {
	return f.Events, f.Err
}

type FakePayments struct {
	mu          sync.Mutex
	CreateErr   error
	Payments    map[string]*domain.Payment
	LookupErr   error
	Created     []domain.PreferenceRequest
	LinkTTL     time.Duration
	Now         func() time.Time
	lookupCalls int
}

func (f *FakePayments) CreatePreference(_ context.Context, req domain.PreferenceRequest) (*domain.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.Created = append(f.Created, req)
	n := len(f.Created)

	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}
	ttl := f.LinkTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &domain.Preference{
		ProviderPreferenceID: fmt.Sprintf("pref-%d", n),
		PaymentLink:          fmt.Sprintf("https://mp.example/checkout/pref-%d", n),
		ExpiresAt:            now.Add(ttl),
	}, nil
}

func (f *FakePayments) GetPayment(_ context.Context, id string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookupCalls++
	if f.LookupErr != nil {
		return nil, f.LookupErr
	}
	p, ok := f.Payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", id)
	}
	return p, nil
}

func (f *FakePayments) LookupCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookupCalls
}

type SentMessage struct {
	To   string
	Body string
}

type FakeMessenger struct {
	mu   sync.Mutex
	Fail string
	Sent []SentMessage
}

func (f *FakeMessenger) Send(_ context.Context, to, body string) domain.SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Fail != "" {
		return domain.SendResult{Error: f.Fail}
	}
	f.Sent = append(f.Sent, SentMessage{To: to, Body: body})
	return domain.SendResult{Success: true, ProviderMessageID: fmt.Sprintf("SM%d", len(f.Sent))}
}

func (f *FakeMessenger) Messages() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.Sent...)
}

// Count returns how many sent messages contain substr.
func (f *FakeMessenger) Count(substr string) int {
	n := 0
	for _, m := range f.Messages() {
		if strings.Contains(m.Body, substr) {
			n++
		}
	}
	return n
}
