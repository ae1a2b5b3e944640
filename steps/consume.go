package steps

import (
	"context"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/kafka"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/step"
)

type consumeArgs struct {
	Topic       string        `mapstructure:"topic" validate:"required"`
	Group       string        `mapstructure:"group"`
	MaxRecords  int           `mapstructure:"max_records" validate:"gte=0"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"gte=0"`
}

type pending struct {
	res resource.Resource
	msg kafkago.Message
}

// consumer is a stream supplier over a Kafka topic. Each message value is a
// resource reference; the message is committed when its resource is handed
// to the pipeline.
type consumer struct {
	step.Base
	args   consumeArgs
	deps   Dependencies
	log    *logger.Logger
	reader kafka.Reader
	queue  []pending
}

func newConsume(spec step.Spec, deps Dependencies) (step.Step, error) {
	c := &consumer{Base: spec.Base(step.KindStreamSupplier), deps: deps}
	if err := decodeArgs(spec, &c.args); err != nil {
		return nil, err
	}
	if deps.Readers == nil {
		return nil, apperrors.Configuration("consume needs kafka to be enabled")
	}
	if c.args.MaxRecords == 0 {
		c.args.MaxRecords = deps.Kafka.MaxPollRecords
	}
	if c.args.PollTimeout == 0 {
		c.args.PollTimeout = kafka.ParseDuration(deps.Kafka.PollTimeout)
	}
	c.log = deps.Logger.WithComponent("consume").WithFields(logger.Fields("topic", c.args.Topic))
	return c, nil
}

// OnStart opens the reader.
func (c *consumer) OnStart(context.Context) error {
	return c.open()
}

func (c *consumer) open() error {
	if c.reader != nil {
		return nil
	}
	r, err := c.deps.Readers(c.args.Topic, c.args.Group)
	if err != nil {
		return err
	}
	c.reader = r
	return nil
}

// OnComplete logs the reader statistics and closes the reader.
func (c *consumer) OnComplete(context.Context) error {
	if c.reader == nil {
		return nil
	}
	c.log.Info("consumer finished", kafka.CollectReaderMetrics(c.reader.Stats()).Fields())
	err := c.reader.Close()
	c.reader = nil
	return err
}

func (c *consumer) HasNext(context.Context) (bool, error) { return len(c.queue) > 0, nil }

func (c *consumer) Next(ctx context.Context) (resource.Resource, error) {
	if len(c.queue) == 0 {
		return nil, step.ErrExhausted
	}
	p := c.queue[0]
	c.queue = c.queue[1:]
	if err := c.reader.CommitMessages(ctx, p.msg); err != nil {
		return nil, kafka.Translate(err, c.args.Topic)
	}
	return p.res, nil
}

// Poll fetches up to MaxRecords messages, waiting at most PollTimeout for
// each. Messages that do not name a resource are committed and skipped.
func (c *consumer) Poll(ctx context.Context) error {
	if err := c.open(); err != nil {
		return err
	}
	for i := 0; i < c.args.MaxRecords; i++ {
		fctx, cancel := context.WithTimeout(ctx, c.args.PollTimeout)
		msg, err := c.reader.FetchMessage(fctx)
		cancel()
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return kafka.Translate(err, c.args.Topic)
		}
		m := kafka.FromKafkaMessage(msg)
		res, err := Resolve(c.deps, string(m.Value))
		if err != nil {
			c.log.Warn("skipping message", logger.MergeWithError(logger.Fields("offset", m.Offset, "partition", m.Partition), err))
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return kafka.Translate(err, c.args.Topic)
			}
			continue
		}
		c.queue = append(c.queue, pending{res: res, msg: msg})
	}
	return nil
}

func (c *consumer) Rebuild() error {
	c.queue = nil
	return nil
}
