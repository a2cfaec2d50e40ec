package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Appointment sweep
	SweepRuns        prometheus.Counter
	SweepTransitions *prometheus.CounterVec
	SweepFailures    prometheus.Counter
	SweepDuration    prometheus.Histogram

	// Discharge engine
	DischargeEvaluations *prometheus.CounterVec
	Discharges           *prometheus.CounterVec

	// Notifications
	NotificationsCreated *prometheus.CounterVec
	EmailDeliveries      *prometheus.CounterVec
	EmailLatency         prometheus.Histogram

	// Fanout
	FanoutEvents      *prometheus.CounterVec
	FanoutDropped     prometheus.Counter
	ConnectedSessions prometheus.Gauge

	// Background job metrics
	JobRuns *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg. Passing nil uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SweepRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointment_sweep",
			Name:      "runs_total",
			Help:      "Total number of appointment status sweeps",
		}),
		SweepTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointment_sweep",
			Name:      "transitions_total",
			Help:      "Automatic appointment status transitions by target status",
		}, []string{"status"}),
		SweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointment_sweep",
			Name:      "failures_total",
			Help:      "Appointments skipped by the sweep because of an error",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "appointment_sweep",
			Name:      "duration_seconds",
			Help:      "Time spent in one sweep pass",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),

		DischargeEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discharge",
			Name:      "evaluations_total",
			Help:      "Discharge eligibility evaluations by outcome",
		}, []string{"outcome"}),
		Discharges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discharge",
			Name:      "discharges_total",
			Help:      "Patients discharged by mode",
		}, []string{"mode"}),

		NotificationsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "created_total",
			Help:      "In-app notifications created by type",
		}, []string{"type"}),
		EmailDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "emails_total",
			Help:      "Email routing outcomes by type and result",
		}, []string{"type", "result"}),
		EmailLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "email_duration_seconds",
			Help:      "Time spent handing an email to the transport",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		FanoutEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "events_total",
			Help:      "Real-time events published by scope",
		}, []string{"scope"}),
		FanoutDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "dropped_total",
			Help:      "Deliveries dropped because a session buffer was full",
		}),
		ConnectedSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "connected_sessions",
			Help:      "Current number of connected real-time sessions",
		}),

		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_runs_total",
			Help:      "Background job runs by job and result",
		}, []string{"job", "result"}),
	}
}

// NewNop returns metrics registered on a throwaway registry. Used by tests and tools.
func NewNop() *Metrics {
	return NewMetrics(prometheus.NewRegistry(), "test")
}
