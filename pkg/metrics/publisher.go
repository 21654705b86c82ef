package metrics

import (
	"context"

	"sharebasket/pkg/events"
)

// CountingPublisher counts events on their way to the next publisher. An
// event is counted even when the next publisher fails: the mutation it
// describes already happened.
type CountingPublisher struct {
	next    events.Publisher
	metrics *Metrics
}

func (m *Metrics) Publisher(next events.Publisher) *CountingPublisher {
	return &CountingPublisher{next: next, metrics: m}
}

func (p *CountingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.metrics.activity.WithLabelValues(e.Type).Inc()
	return p.next.Publish(ctx, e)
}

func (p *CountingPublisher) Close() error {
	return p.next.Close()
}
