package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		notificationsTotal,
		schedulerTicksTotal,
		schedulerTickDuration,
		schedulerBindings,
		schedulerJobsTotal,
	)
}

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Scheduled notifications by kind and result.",
		},
		[]string{"kind", "result"},
	)

	schedulerTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Hourly notification ticks by result.",
		},
		[]string{"result"},
	)

	schedulerTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Wall time of one notification tick.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	schedulerBindings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_active_bindings",
			Help: "Active bindings seen by the last tick.",
		},
	)

	schedulerJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_total",
			Help: "Background jobs run by the leader, by job and result.",
		},
		[]string{"job", "result"},
	)
)

func AddNotifications(kind string, n int, err error) {
	if n <= 0 {
		return
	}
	notificationsTotal.WithLabelValues(norm(kind), result(err)).Add(float64(n))
}

func ObserveTick(d time.Duration, bindings int, err error) {
	schedulerTicksTotal.WithLabelValues(result(err)).Inc()
	schedulerTickDuration.Observe(d.Seconds())
	schedulerBindings.Set(float64(bindings))
}

func IncJob(job string, err error) {
	schedulerJobsTotal.WithLabelValues(norm(job), result(err)).Inc()
}
