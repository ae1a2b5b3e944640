package kafka

import (
	"context"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
)

// Reader is the subset of *kafkago.Reader used by stream sources. Messages
// are fetched and committed explicitly so a message is acknowledged only
// once its resource has entered the pipeline.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.ReaderStats
	Close() error
}

// ReaderFactory opens a reader for topic in the given consumer group. An
// empty group selects the configured default.
type ReaderFactory func(topic, groupID string) (Reader, error)

// NewReader creates a consumer-group reader for a single topic.
func NewReader(cfg Config, topic, groupID string, log *logger.Logger) (*kafkago.Reader, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, apperrors.Configuration("kafka is disabled")
	}
	if topic == "" {
		return nil, apperrors.InvalidInput("topic", "must not be empty")
	}
	if groupID == "" {
		groupID = cfg.GroupID
	}

	dialer, err := CreateDialer(&cfg)
	if err != nil {
		return nil, err
	}

	rlog := log.WithComponent("kafka.reader")
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           groupID,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		MinBytes:          1,
		MaxBytes:          10e6,
		SessionTimeout:    ParseDuration(cfg.SessionTimeout),
		HeartbeatInterval: ParseDuration(cfg.HeartbeatInterval),
		RebalanceTimeout:  ParseDuration(cfg.RebalanceTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			rlog.Error("reader: "+fmt.Sprintf(msg, args...), logger.Fields("topic", topic, "group_id", groupID))
		}),
	})

	rlog.Info("kafka reader opened", logger.Fields("topic", topic, "group_id", groupID, "brokers", cfg.Brokers))
	return reader, nil
}

// Readers returns a ReaderFactory bound to cfg.
func Readers(cfg Config, log *logger.Logger) ReaderFactory {
	return func(topic, groupID string) (Reader, error) {
		return NewReader(cfg, topic, groupID, log)
	}
}

// trackedReaders remembers every reader it opens so that they can be closed
// together.
type trackedReaders struct {
	mu      sync.Mutex
	open    ReaderFactory
	readers []Reader
}

func (t *trackedReaders) factory(topic, groupID string) (Reader, error) {
	r, err := t.open(topic, groupID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.readers = append(t.readers, r)
	t.mu.Unlock()
	return r, nil
}

func (t *trackedReaders) closeAll() []error {
	t.mu.Lock()
	readers := t.readers
	t.readers = nil
	t.mu.Unlock()
	var errs []error
	for _, r := range readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (t *trackedReaders) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.readers)
}
