package reconcile

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BruksfildServices01/psico-pay/internal/domain/calendar"
	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/metrics"
	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/notify"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/payment"
)

// ======================================================
// CONFIG
// ======================================================

type Config struct {
	TherapistID    uuid.UUID
	AmountCents    int64
	Currency       string
	Windows        domain.Windows
	LookAhead      time.Duration
	Parser         calendar.ParserConfig
	GatewayTimeout time.Duration
	Concurrency    int
}

type Deps struct {
	Calendar domain.CalendarGateway
	Patients domain.PatientRepository
	Sessions domain.SessionRepository
	Links    *payment.Links
	Notifier *notify.Notifier
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Clock    func() time.Time
}

// ======================================================
// JOB
// ======================================================

// Job is one reconciliation pass: calendar sync followed by the three
// notification sweeps. Run never fails; every stage and every session is
// isolated from the others.
type Job struct {
	calendar domain.CalendarGateway
	patients domain.PatientRepository
	sessions domain.SessionRepository
	links    *payment.Links
	notifier *notify.Notifier
	parser   *calendar.Parser

	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewJob(deps Deps, cfg Config) *Job {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}
	if cfg.LookAhead <= 0 {
		cfg.LookAhead = 48 * time.Hour
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Job{
		calendar: deps.Calendar,
		patients: deps.Patients,
		sessions: deps.Sessions,
		links:    deps.Links,
		notifier: deps.Notifier,
		parser:   calendar.NewParser(cfg.Parser),
		cfg:      cfg,
		log:      log.Named("reconcile"),
		metrics:  deps.Metrics,
		now:      clock,
	}
}

type Summary struct {
	Synced       int      `json:"synced"`
	Reminders24h int      `json:"reminders_24h"`
	Reminders2h  int      `json:"reminders_2h"`
	MeetLinks    int      `json:"meet_links"`
	FailedStages []string `json:"failed_stages"`
}

func (j *Job) Run(ctx context.Context) {
	j.RunWithSummary(ctx, "cron")
}

// RunWithSummary runs every stage against a single clock reading.
func (j *Job) RunWithSummary(ctx context.Context, trigger string) Summary {
	started := time.Now()
	now := j.now()

	j.log.Info("reconciliation started", zap.String("trigger", trigger), zap.Time("now", now))

	var sum Summary
	j.stage(ctx, &sum, "calendar_sync", func(ctx context.Context) (int, error) {
		return j.syncCalendar(ctx, now)
	}, &sum.Synced)
	j.stage(ctx, &sum, "reminder_24h", func(ctx context.Context) (int, error) {
		return j.sweep24h(ctx, now)
	}, &sum.Reminders24h)
	j.stage(ctx, &sum, "reminder_2h", func(ctx context.Context) (int, error) {
		return j.sweep2h(ctx, now)
	}, &sum.Reminders2h)
	j.stage(ctx, &sum, "meet_link", func(ctx context.Context) (int, error) {
		return j.sweepMeetLinks(ctx, now)
	}, &sum.MeetLinks)

	elapsed := time.Since(started)
	j.metrics.ObserveRun(trigger, elapsed)
	j.log.Info("reconciliation finished",
		zap.Duration("elapsed", elapsed),
		zap.Int("synced", sum.Synced),
		zap.Int("reminders_24h", sum.Reminders24h),
		zap.Int("reminders_2h", sum.Reminders2h),
		zap.Int("meet_links", sum.MeetLinks),
		zap.Strings("failed_stages", sum.FailedStages),
	)
	return sum
}

func (j *Job) stage(
	ctx context.Context,
	sum *Summary,
	name string,
	fn func(context.Context) (int, error),
	count *int,
) {
	err := guard(func() error {
		n, err := fn(ctx)
		*count = n
		return err
	})
	if err != nil {
		sum.FailedStages = append(sum.FailedStages, name)
		j.metrics.StageFailed(name)
		j.log.Error("stage failed", zap.String("stage", name), zap.Error(err))
	}
}

// forEach processes sessions concurrently. Per-item failures are logged and
// never cancel the siblings.
func (j *Job) forEach(
	ctx context.Context,
	stage string,
	items []models.Session,
	fn func(context.Context, *models.Session) error,
) {
	var g errgroup.Group
	g.SetLimit(j.cfg.Concurrency)

	for i := range items {
		s := &items[i]
		g.Go(func() error {
			if err := guard(func() error { return fn(ctx, s) }); err != nil {
				j.log.Error("session processing failed",
					zap.String("stage", stage),
					zap.String("session_id", s.ID.String()),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}
