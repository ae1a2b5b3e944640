package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/datapipe/component"
	"github.com/kbukum/datapipe/logger"
)

// Component owns the readers opened by consume steps and the report
// publisher, and implements component.Component.
type Component struct {
	cfg       Config
	log       *logger.Logger
	readers   *trackedReaders
	publisher *Publisher
	mu        sync.Mutex
	running   bool
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a Kafka component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	c := &Component{cfg: cfg, log: log.WithComponent("kafka")}
	c.readers = &trackedReaders{open: Readers(cfg, log)}
	return c
}

// withOpener replaces the reader opener; used by tests.
func (c *Component) withOpener(f ReaderFactory) *Component {
	c.readers.open = f
	return c
}

// Readers returns a factory whose readers are closed when the component stops.
func (c *Component) Readers() ReaderFactory { return c.readers.factory }

// SetPublisher hands a publisher to the component, which closes it on Stop.
func (c *Component) SetPublisher(p *Publisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publisher = p
}

// Name returns the component name.
func (c *Component) Name() string { return "kafka" }

// Start validates the configuration.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.running = true
	c.log.Info("kafka component started", logger.Fields("brokers", c.cfg.Brokers))
	return nil
}

// Stop closes every tracked reader and the publisher.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	errs := c.readers.closeAll()
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
		c.publisher = nil
	}
	c.running = false
	c.log.Info("kafka component stopped")
	return errors.Join(errs...)
}

// Health checks broker connectivity by dialling the first broker.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	cfg := c.cfg
	c.mu.Unlock()

	if !running {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "kafka not started"}
	}
	if !cfg.Enabled {
		return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: "disabled"}
	}

	dialer, err := CreateDialer(&cfg)
	if err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("dialer: %v", err)}
	}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("broker unreachable: %v", err)}
	}
	defer conn.Close() //nolint:errcheck // health probe

	if _, err := conn.Brokers(); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: fmt.Sprintf("broker metadata: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns infrastructure summary info.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("brokers=%v readers=%d", c.cfg.Brokers, c.readers.count())
	c.mu.Lock()
	if c.publisher != nil {
		details += " publisher=" + c.publisher.Topic()
	}
	c.mu.Unlock()
	return component.Description{Name: "Kafka", Type: "kafka", Details: details}
}
