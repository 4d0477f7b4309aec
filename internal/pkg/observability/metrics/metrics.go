package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"aws-sqs-messenger/internal/pkg/queue"
)

var (
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_requests_total",
			Help: "Total messenger operations by backend, operation and result",
		}, []string{"backend", "op", "result"})

	Batches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_batches_total",
			Help: "Total batch requests issued to the queue service",
		}, []string{"backend", "op"})

	Messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_messages_total",
			Help: "Total messages sent, received or deleted",
		}, []string{"backend", "op"})

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messenger_request_duration_seconds",
			Help:    "Histogram of messenger operation duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "op"})
)

func Setup() {
	prometheus.MustRegister(Requests)
	prometheus.MustRegister(Batches)
	prometheus.MustRegister(Messages)
	prometheus.MustRegister(RequestDuration)
}

// ObserveRequest records the outcome and duration of one operation. It is
// meant to be deferred with a pointer to the operation's named error result.
func ObserveRequest(backend, op string, start time.Time, errp *error) {
	result := "ok"
	if errp != nil && *errp != nil {
		result = queue.KindOf(*errp).String()
	}
	Requests.WithLabelValues(backend, op, result).Inc()
	RequestDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

// ObserveBatch records one batch request carrying n messages.
func ObserveBatch(backend, op string, n int) {
	Batches.WithLabelValues(backend, op).Inc()
	Messages.WithLabelValues(backend, op).Add(float64(n))
}
