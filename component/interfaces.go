package component

import (
	"context"

	"github.com/kbukum/datapipe/logger"
)

// HealthStatus is the state a component reports to readiness checks and
// the runner status line.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	// StatusDegraded means usable but impaired, e.g. a stream runner that
	// has not started yet or a Kafka reader with errors since the last poll.
	StatusDegraded HealthStatus = "degraded"
)

// Health is one component's status. Message explains anything but healthy.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a long-lived dependency of a pipeline run: a store set, the
// Kafka client, the report database, telemetry exporters or a stream runner.
// Start is called once before the first pipeline executes and Stop once
// after the last one; Health may be called at any time in between.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is what the registry logs when a component has started.
type Description struct {
	// Name is a display name; the registry logs Component.Name when empty.
	Name string
	// Type groups components in logs, e.g. "storage", "kafka" or "runner".
	Type string
	// Details is a one-line summary such as "driver=sqlite pool=25/5" or
	// "mode=STREAM steps=4".
	Details string
}

func (d Description) fields(name string) map[string]any {
	if d.Name != "" {
		name = d.Name
	}
	return logger.Fields("display_name", name, "type", d.Type, "details", d.Details)
}

// Describable is implemented by components with configuration worth
// logging at startup.
type Describable interface {
	Describe() Description
}
