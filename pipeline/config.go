package pipeline

import (
	"math"
	"time"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/validation"
)

// TimeoutType selects what happens when an execution exceeds its timeout.
type TimeoutType string

const (
	// TimeoutDuration treats the timeout as the planned run length: the
	// execution ends normally with status timed_out.
	TimeoutDuration TimeoutType = "duration"
	// TimeoutError fails the execution with TIMEOUT.
	TimeoutError TimeoutType = "error"
)

// Action is the error policy applied to step failures.
type Action string

const (
	ActionStop    Action = "stop"
	ActionDiscard Action = "discard"
	ActionPark    Action = "park"
)

// Config holds the engine options of a pipeline.
type Config struct {
	Name string `yaml:"name" mapstructure:"name" validate:"required"`

	// Timeout bounds one execution; zero means no timeout.
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	TimeoutType TimeoutType   `yaml:"timeout_type" mapstructure:"timeout_type" validate:"oneof=duration error"`

	// PollInterval is the minimum time between two polls of a stream root.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval" validate:"gte=0"`
	// PushInterval is slept before every resource a stream root emits.
	PushInterval time.Duration `yaml:"push_interval" mapstructure:"push_interval" validate:"gte=0"`
	// MaxCycleCount caps the resources a supplier loop fetches; zero means
	// unbounded.
	MaxCycleCount uint64 `yaml:"max_cycle_count" mapstructure:"max_cycle_count"`

	OnError Action `yaml:"on_error" mapstructure:"on_error" validate:"oneof=stop discard park"`
	// ParkingTarget is a transfer.Template used when OnError is park.
	ParkingTarget string `yaml:"parking_target" mapstructure:"parking_target"`

	// CollectDownstream keeps resources that leave the cascade in the result.
	CollectDownstream bool `yaml:"collect_downstream" mapstructure:"collect_downstream"`

	// WindowInterval is the default drain interval of stream collectors.
	WindowInterval        time.Duration `yaml:"window_interval" mapstructure:"window_interval" validate:"gt=0"`
	WindowShutdownTimeout time.Duration `yaml:"window_shutdown_timeout" mapstructure:"window_shutdown_timeout" validate:"gt=0"`
	// FlushOnComplete drains stream collectors once more when the run ends
	// without cancellation.
	FlushOnComplete bool `yaml:"flush_on_complete" mapstructure:"flush_on_complete"`

	// ShutdownGrace bounds the wait for a timed out worker.
	ShutdownGrace time.Duration `yaml:"shutdown_grace" mapstructure:"shutdown_grace" validate:"gt=0"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.TimeoutType == "" {
		c.TimeoutType = TimeoutError
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.OnError == "" {
		c.OnError = ActionStop
	}
	if c.WindowInterval == 0 {
		c.WindowInterval = 10 * time.Second
	}
	if c.WindowShutdownTimeout == 0 {
		c.WindowShutdownTimeout = 30 * time.Second
	}
	if c.ShutdownGrace == 0 {
		c.ShutdownGrace = 5 * time.Second
	}
}

// Validate checks the configuration. Call ApplyDefaults first.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "invalid pipeline configuration")
	}
	return nil
}

func (c *Config) maxCycles() uint64 {
	if c.MaxCycleCount == 0 {
		return math.MaxUint64
	}
	return c.MaxCycleCount
}
