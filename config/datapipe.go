package config

import (
	"fmt"

	"github.com/kbukum/datapipe/database"
	"github.com/kbukum/datapipe/kafka"
	"github.com/kbukum/datapipe/observability"
	"github.com/kbukum/datapipe/storage"
	"github.com/kbukum/datapipe/validation"
)

// DefaultStore is the store created when none is configured.
const DefaultStore = "local"

// Config is the configuration of the datapipe command.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// Storage maps store names to backends. Object references name them.
	Storage       map[string]storage.Config `yaml:"storage" mapstructure:"storage"`
	Kafka         kafka.Config              `yaml:"kafka" mapstructure:"kafka"`
	Report        ReportConfig              `yaml:"report" mapstructure:"report"`
	Observability observability.Config      `yaml:"observability" mapstructure:"observability"`
	Pipelines     PipelinesConfig           `yaml:"pipelines" mapstructure:"pipelines"`
}

// ReportConfig selects where execution reports go. Every configured
// destination receives every report.
type ReportConfig struct {
	// File is a path to write JSON reports to; "-" is standard output.
	File string `yaml:"file" mapstructure:"file"`
	// Store and Path upload each report as an object.
	Store string `yaml:"store" mapstructure:"store"`
	Path  string `yaml:"path" mapstructure:"path"`
	// Topic publishes each report to Kafka.
	Topic string `yaml:"topic" mapstructure:"topic"`
	// Database stores reports in SQL tables.
	Database database.Config `yaml:"database" mapstructure:"database"`
}

// PipelinesConfig holds settings shared by all pipelines of the process.
type PipelinesConfig struct {
	// Dirs are searched for definitions given by name instead of path.
	Dirs []string `yaml:"dirs" mapstructure:"dirs"`
	// Catalog names the in-memory table catalog.
	Catalog string `yaml:"catalog" mapstructure:"catalog"`
	// ParkingTarget applies to definitions that park without their own target.
	ParkingTarget string `yaml:"parking_target" mapstructure:"parking_target"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if len(c.Storage) == 0 {
		c.Storage = map[string]storage.Config{DefaultStore: {Provider: storage.ProviderLocal}}
	}
	for name, sc := range c.Storage {
		sc.ApplyDefaults()
		c.Storage[name] = sc
	}
	c.Kafka.ApplyDefaults()
	if c.Report.Database.DSN != "" {
		c.Report.Database.Enabled = true
	}
	c.Report.Database.ApplyDefaults()
	c.Observability.ApplyDefaults(c.Name)
	if len(c.Pipelines.Dirs) == 0 {
		c.Pipelines.Dirs = []string{".", "pipelines"}
	}
	if c.Pipelines.Catalog == "" {
		c.Pipelines.Catalog = "main"
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	for name, sc := range c.Storage {
		if err := sc.Validate(); err != nil {
			return fmt.Errorf("config.storage.%s: %w", name, err)
		}
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("config.kafka: %w", err)
	}
	_, known := c.Storage[c.Report.Store]
	v := validation.New().
		Custom(c.Report.Store == "" || known, "report.store", fmt.Sprintf("unknown store %q", c.Report.Store)).
		Custom(c.Report.Topic == "" || c.Kafka.Enabled, "report.topic", "kafka is disabled")
	if err := v.Validate(); err != nil {
		return err
	}
	if c.Report.Database.Enabled {
		if err := c.Report.Database.Validate(); err != nil {
			return fmt.Errorf("config.report.database: %w", err)
		}
	}
	return nil
}
