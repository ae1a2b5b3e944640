package report

import (
	"context"

	"github.com/kbukum/datapipe/result"
)

// Publisher publishes JSON documents. *kafka.Publisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, value any) error
}

// KafkaSink publishes each report keyed by its execution id.
type KafkaSink struct {
	pub Publisher
}

// NewKafkaSink creates a sink publishing through pub.
func NewKafkaSink(pub Publisher) *KafkaSink {
	return &KafkaSink{pub: pub}
}

// Write publishes rep.
func (s *KafkaSink) Write(ctx context.Context, rep *result.Report) error {
	return traced(ctx, "kafka", rep, func(ctx context.Context) error {
		return s.pub.PublishJSON(ctx, rep.ExecutionID, rep)
	})
}
