package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/psico-pay/internal/audit"
	"github.com/BruksfildServices01/psico-pay/internal/config"
	dbpkg "github.com/BruksfildServices01/psico-pay/internal/db"
	"github.com/BruksfildServices01/psico-pay/internal/domain/calendar"
	domain "github.com/BruksfildServices01/psico-pay/internal/domain/session"
	"github.com/BruksfildServices01/psico-pay/internal/infra/gateway"
	"github.com/BruksfildServices01/psico-pay/internal/infra/lock"
	infraRepo "github.com/BruksfildServices01/psico-pay/internal/infra/repository"
	"github.com/BruksfildServices01/psico-pay/internal/metrics"
	"github.com/BruksfildServices01/psico-pay/internal/models"
	"github.com/BruksfildServices01/psico-pay/internal/scheduler"
	"github.com/BruksfildServices01/psico-pay/internal/timezone"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/notify"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/ops"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/payment"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/reconcile"
)

// Gateways lets callers swap the external integrations; nil fields are
// built from the config.
type Gateways struct {
	Calendar  domain.CalendarGateway
	Payments  domain.PaymentGateway
	Messenger domain.MessagingGateway
	Locker    lock.Locker
}

// App holds the wired object graph shared by the API and opsctl.
type App struct {
	Therapist *models.Therapist
	Location  *time.Location
	Metrics   *metrics.Metrics

	Job       *reconcile.Job
	Scheduler *scheduler.Scheduler
	Confirm   *payment.ConfirmPayment
	Ops       *ops.Usecases
	Audit     *audit.Dispatcher

	redis *redis.Client
	log   *zap.Logger
}

func Windows(cfg *config.Config) domain.Windows {
	return domain.Windows{
		Reminder24h: domain.Window{MinMinutes: cfg.Reminder24hMin, MaxMinutes: cfg.Reminder24hMax},
		Reminder2h:  domain.Window{MinMinutes: cfg.Reminder2hMin, MaxMinutes: cfg.Reminder2hMax},
		MeetLink:    domain.Window{MinMinutes: cfg.MeetLinkMin, MaxMinutes: cfg.MeetLinkMax},
	}
}

func Build(
	ctx context.Context,
	cfg *config.Config,
	db *gorm.DB,
	log *zap.Logger,
	reg prometheus.Registerer,
	gw Gateways,
) (*App, error) {

	if log == nil {
		log = zap.NewNop()
	}

	therapist, err := dbpkg.EnsureTherapist(db, cfg)
	if err != nil {
		return nil, err
	}
	loc := timezone.Location(therapist.Timezone)

	a := &App{
		Therapist: therapist,
		Location:  loc,
		Metrics:   metrics.New(reg),
		log:       log,
	}

	if err := a.buildGateways(ctx, cfg, &gw); err != nil {
		return nil, err
	}

	// ======================================================
	// REPOSITORIES
	// ======================================================
	patients := infraRepo.NewPatientGormRepository(db)
	sessions := infraRepo.NewSessionGormRepository(db)
	prefs := infraRepo.NewPaymentPreferenceGormRepository(db)
	notifications := infraRepo.NewNotificationGormRepository(db)

	// ======================================================
	// USE CASES
	// ======================================================
	links := payment.NewLinks(gw.Payments, prefs, cfg.GatewayTimeout, log.Named("links"))
	notifier := notify.NewNotifier(gw.Messenger, notifications, loc, cfg.GatewayTimeout, log.Named("notify"), a.Metrics)
	windows := Windows(cfg)

	a.Job = reconcile.NewJob(reconcile.Deps{
		Calendar: gw.Calendar,
		Patients: patients,
		Sessions: sessions,
		Links:    links,
		Notifier: notifier,
		Metrics:  a.Metrics,
		Logger:   log,
	}, reconcile.Config{
		TherapistID: therapist.ID,
		AmountCents: therapist.SessionPriceCents,
		Currency:    therapist.Currency,
		Windows:     windows,
		LookAhead:   cfg.CalendarLookahead,
		Parser: calendar.ParserConfig{
			MinDurationMinutes: cfg.SessionMinDuration,
			MaxDurationMinutes: cfg.SessionMaxDuration,
		},
		GatewayTimeout: cfg.GatewayTimeout,
		Concurrency:    cfg.SweepConcurrency,
	})

	a.Scheduler, err = scheduler.New(a.Job, scheduler.Config{
		Spec:       cfg.SchedulerSpec,
		Location:   loc,
		RunOnStart: cfg.SchedulerRunOnStart,
	}, log)
	if err != nil {
		return nil, err
	}

	a.Confirm = payment.NewConfirmPayment(
		gw.Payments,
		sessions,
		notifier,
		gw.Locker,
		cfg.GatewayTimeout,
		log.Named("webhook"),
		a.Metrics,
	)

	a.Audit = audit.NewDispatcher(audit.New(db), log.Named("audit"))

	a.Ops = ops.New(ops.Deps{
		TherapistID:   therapist.ID,
		Sessions:      sessions,
		Notifications: notifications,
		Links:         links,
		Notifier:      notifier,
		Audit:         a.Audit,
		Windows:       windows,
	})

	return a, nil
}

func (a *App) buildGateways(ctx context.Context, cfg *config.Config, gw *Gateways) error {
	if gw.Calendar == nil {
		cal, err := gateway.NewGoogleCalendar(ctx, gateway.GoogleCalendarConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RefreshToken: cfg.GoogleRefreshToken,
			CalendarID:   cfg.GoogleCalendarID,
		}, a.log.Named("calendar"))
		if err != nil {
			return err
		}
		gw.Calendar = cal
	}

	if gw.Payments == nil {
		mp, err := gateway.NewMercadoPago(gateway.MercadoPagoConfig{
			AccessToken:   cfg.MPAccessToken,
			AppURL:        cfg.AppURL,
			TherapistName: a.Therapist.Name,
			LinkTTL:       cfg.PaymentLinkTTL,
		}, a.log.Named("mercadopago"))
		if err != nil {
			return err
		}
		gw.Payments = mp
	}

	if gw.Messenger == nil {
		gw.Messenger = gateway.NewTwilioWhatsApp(
			cfg.TwilioAccountSID,
			cfg.TwilioAuthToken,
			cfg.TwilioWhatsAppFrom,
			a.log.Named("twilio"),
		)
	}

	if gw.Locker == nil {
		gw.Locker = lock.NoopLocker{}
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
			})
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				// sem redis o webhook ainda é idempotente pela escrita condicional
				a.log.Warn("redis unavailable, webhook lock disabled", zap.Error(err))
				_ = client.Close()
			} else {
				a.redis = client
				gw.Locker = lock.NewRedisLocker(client)
			}
		}
	}
	return nil
}

// Close flushes pending audit rows and releases the redis client.
func (a *App) Close() error {
	a.Audit.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}
	return nil
}
