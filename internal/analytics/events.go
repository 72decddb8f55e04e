// Package analytics collects one SearchEvent per served query, ships them in
// batches to Kafka (or straight to an in-process Aggregator) and aggregates
// them into per-endpoint statistics.
package analytics

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/kafka"
)

// SearchEvent describes a single answered query.
type SearchEvent struct {
	Endpoint  string    `json:"endpoint"`
	Query     string    `json:"query"`
	TermCount int       `json:"term_count"`
	Returned  int       `json:"returned"`
	LatencyMs float64   `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ZeroResult reports whether the query matched nothing.
func (e SearchEvent) ZeroResult() bool {
	return e.Returned == 0
}

// Publisher delivers a batch of events. Implementations must not retain the
// slice after returning.
type Publisher interface {
	Publish(ctx context.Context, events []SearchEvent) error
}

// BatchWriter is the subset of *kafka.Producer the Kafka publisher needs.
type BatchWriter interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// KafkaPublisher keys each event by endpoint so one endpoint's events stay
// ordered within a partition.
type KafkaPublisher struct {
	writer BatchWriter
}

func NewKafkaPublisher(writer BatchWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events []SearchEvent) error {
	batch := make([]kafka.Event, len(events))
	for i, ev := range events {
		batch[i] = kafka.Event{Key: ev.Endpoint, Value: ev}
	}
	return p.writer.PublishBatch(ctx, batch)
}
