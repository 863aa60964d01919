// Package metrics holds the Prometheus collectors shared by the check
// pipeline, the notifier and the scheduler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rss_herald_notifications_total",
		Help: "Webhook notifications attempted, by result",
	}, []string{"result"})

	CheckCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rss_herald_check_cycles_total",
		Help: "Completed check-all-feeds cycles",
	})

	FeedChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rss_herald_feed_checks_total",
		Help: "Individual feed checks, by result",
	}, []string{"result"})

	NewEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rss_herald_new_entries_total",
		Help: "Entries detected as new",
	})

	CheckCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rss_herald_check_cycle_duration_seconds",
		Help:    "Duration of check-all-feeds cycles",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
	})

	MonitorRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rss_herald_monitor_running",
		Help: "1 while the polling scheduler is running",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
