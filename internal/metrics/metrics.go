package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters and histograms for the reconciliation pipeline.
// All methods are safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    prometheus.Histogram
	stageFailures  *prometheus.CounterVec
	calendarEvents *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	sweepSkips     *prometheus.CounterVec
	webhooks       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psicopay",
			Subsystem: "job",
			Name:      "runs_total",
			Help:      "Reconciliation job runs by trigger",
		}, []string{"trigger"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "psicopay",
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "Wall time of a full reconciliation run",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psicopay",
			Subsystem: "job",
			Name:      "stage_failures_total",
			Help:      "Stages that aborted with an error",
		}, []string{"stage"}),
		calendarEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psicopay",
			Subsystem: "calendar",
			Name:      "events_total",
			Help:      "Calendar events seen by the sync stage",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psicopay",
			Subsystem: "messaging",
			Name:      "notifications_total",
			Help:      "Outbound notifications by type and delivery status",
		}, []string{"type", "status"}),
		sweepSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psicopay",
			Subsystem: "job",
			Name:      "sweep_skips_total",
			Help:      "Sessions skipped by a sweep because a precondition failed",
		}, []string{"sweep", "reason"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psicopay",
			Subsystem: "payments",
			Name:      "webhook_total",
			Help:      "Payment webhooks by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.jobRuns,
		m.jobDuration,
		m.stageFailures,
		m.calendarEvents,
		m.notifications,
		m.sweepSkips,
		m.webhooks,
	)
	return m
}

func (m *Metrics) ObserveRun(trigger string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(trigger).Inc()
	m.jobDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) StageFailed(stage string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) CalendarEvent(result string) {
	if m == nil {
		return
	}
	m.calendarEvents.WithLabelValues(result).Inc()
}

func (m *Metrics) Notification(kind, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) SweepSkipped(sweep, reason string) {
	if m == nil {
		return
	}
	m.sweepSkips.WithLabelValues(sweep, reason).Inc()
}

func (m *Metrics) Webhook(outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(outcome).Inc()
}
