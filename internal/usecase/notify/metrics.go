package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deltawatch_notification_dispatched_total",
			Help: "Total number of batches dispatched to a channel",
		},
		[]string{"channel"},
	)

	notificationSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deltawatch_notification_sent_total",
			Help: "Total number of batch deliveries by result",
		},
		[]string{"channel", "status"}, // success|failure
	)

	notificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deltawatch_notification_duration_seconds",
			Help:    "Batch delivery duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"channel"},
	)

	notificationItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deltawatch_notification_items_total",
			Help: "Total number of items delivered per channel",
		},
		[]string{"channel"},
	)

	circuitBreakerOpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deltawatch_notification_circuit_breaker_open_total",
			Help: "Total number of channel circuit breaker open events",
		},
		[]string{"channel"},
	)

	notificationDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deltawatch_notification_dropped_total",
			Help: "Total number of batches not attempted on a channel",
		},
		[]string{"channel", "reason"}, // pool_full|circuit_open
	)

	activeNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deltawatch_notification_active",
			Help: "Number of deliveries in flight",
		},
	)

	channelsEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deltawatch_notification_channels_enabled",
			Help: "Number of enabled notification channels",
		},
	)
)

// RecordDispatch counts a delivery about to start.
func RecordDispatch(channel string) {
	notificationDispatchedTotal.WithLabelValues(channel).Inc()
}

// RecordSuccess records a delivered batch of items.
func RecordSuccess(channel string, duration time.Duration, items int) {
	notificationSentTotal.WithLabelValues(channel, "success").Inc()
	notificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
	notificationItemsTotal.WithLabelValues(channel).Add(float64(items))
}

// RecordFailure records a failed delivery.
func RecordFailure(channel string, duration time.Duration) {
	notificationSentTotal.WithLabelValues(channel, "failure").Inc()
	notificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordDropped records a channel skipped for reason.
func RecordDropped(channel, reason string) {
	notificationDroppedTotal.WithLabelValues(channel, reason).Inc()
}

// RecordCircuitBreakerOpen records a channel breaker opening.
func RecordCircuitBreakerOpen(channel string) {
	circuitBreakerOpenTotal.WithLabelValues(channel).Inc()
}

// SetChannelsEnabled sets the enabled channel gauge.
func SetChannelsEnabled(count int) {
	channelsEnabled.Set(float64(count))
}
