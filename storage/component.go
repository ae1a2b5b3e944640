package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/datapipe/component"
	"github.com/kbukum/datapipe/logger"
)

// Component opens the configured stores and implements component.Component.
type Component struct {
	cfgs   map[string]Config
	stores *Stores
	log    *logger.Logger
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a storage component for use with the component registry.
func NewComponent(cfgs map[string]Config, log *logger.Logger) *Component {
	return &Component{cfgs: cfgs, log: log.WithComponent("storage")}
}

// Stores returns the opened stores, or nil if not started.
func (c *Component) Stores() *Stores {
	return c.stores
}

// Name returns the component name.
func (c *Component) Name() string { return "storage" }

// Start opens every configured store.
func (c *Component) Start(_ context.Context) error {
	stores, err := Open(c.cfgs, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.stores = stores
	c.log.Info("stores opened", logger.Fields(logger.FieldCount, len(stores.Names())))
	return nil
}

// Stop releases the stores.
func (c *Component) Stop(_ context.Context) error {
	c.stores = nil
	return nil
}

// Health probes every store with a listing of the root prefix.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.stores == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	for _, name := range c.stores.Names() {
		st, _ := c.stores.Get(name)
		if _, err := st.Exists(ctx, ".health"); err != nil {
			return component.Health{
				Name:    c.Name(),
				Status:  component.StatusDegraded,
				Message: fmt.Sprintf("store %s: %v", name, err),
			}
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}
