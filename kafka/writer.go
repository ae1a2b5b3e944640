package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/resilience"
)

// Writer is the subset of *kafkago.Writer used by publishers.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes JSON documents to one topic with retries.
type Publisher struct {
	w      Writer
	topic  string
	retry  resilience.RetryConfig
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// NewWriter creates a kafka-go writer for topic.
func NewWriter(cfg Config, topic string, log *logger.Logger) (*kafkago.Writer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, apperrors.Configuration("kafka is disabled")
	}
	transport, err := CreateTransport(&cfg)
	if err != nil {
		return nil, err
	}
	wlog := log.WithComponent("kafka.writer")
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        topic,
		Transport:    transport,
		Balancer:     &kafkago.LeastBytes{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: ParseDuration(cfg.BatchTimeout),
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  ResolveCompression(cfg.Compression),
		WriteTimeout: ParseDuration(cfg.WriteTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			wlog.Error("writer: "+fmt.Sprintf(msg, args...), logger.Fields("topic", topic))
		}),
	}
	wlog.Info("kafka writer opened", logger.Fields("topic", topic, "compression", cfg.Compression, "batch_size", cfg.BatchSize))
	return w, nil
}

// NewPublisher wraps w. retries is the number of attempts per publish.
func NewPublisher(w Writer, topic string, retries int, log *logger.Logger) *Publisher {
	retry := resilience.DefaultRetryConfig()
	if retries > 0 {
		retry.MaxAttempts = retries
	}
	retry.RetryIf = func(err error) bool {
		return resilience.DefaultRetryIf(err) && !IsNonRetryableError(err)
	}
	return &Publisher{w: w, topic: topic, retry: retry, log: log.WithComponent("kafka.publisher")}
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string { return p.topic }

// PublishJSON marshals value and writes it under key.
func (p *Publisher) PublishJSON(ctx context.Context, key string, value any) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return apperrors.Configuration("publisher is closed").WithDetail("topic", p.topic)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "marshal message")
	}
	msg := Message{
		Key:     key,
		Value:   data,
		Headers: map[string]string{"content-type": "application/json"},
	}.ToKafkaMessage()

	err = resilience.RetryFunc(ctx, p.retry, func() error {
		return Translate(p.w.WriteMessages(ctx, msg), p.topic)
	})
	if err != nil {
		p.log.Warn("publish failed", logger.MergeWithError(logger.Fields("topic", p.topic, "key", key), err))
	}
	return err
}

// Close closes the underlying writer once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.w.Close()
}
