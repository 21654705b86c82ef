package kafka_middleware

import (
	"context"
	"time"

	"sharebasket/pkg/kafka"

	"github.com/prometheus/client_golang/prometheus"
)

type producerMetrics struct {
	published *prometheus.CounterVec
	duration  prometheus.Histogram
}

// MetricsProducerMiddleware counts publishes by event type and outcome and
// records publish latency on reg.
func MetricsProducerMiddleware(reg prometheus.Registerer) kafka.ProducerMiddleware {
	m := &producerMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharebasket",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Messages handed to the Kafka writer, by event type and result.",
		}, []string{"event_type", "result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sharebasket",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Time spent publishing a single message.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.published, m.duration)

	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		m.duration.Observe(time.Since(start).Seconds())

		result := "ok"
		if err != nil {
			result = "error"
		}
		m.published.WithLabelValues(msg.GetEventType(), result).Inc()
		return err
	}
}
