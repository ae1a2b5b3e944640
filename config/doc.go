// Package config loads datapipe service configuration.
//
// LoadConfig reads a YAML file (explicit or discovered), then a .env file,
// then environment variables prefixed with DATAPIPE_, and unmarshals the
// merged view into the caller's struct with viper. Structs embed
// ServiceConfig and add their own sections.
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Storage storage.Config `yaml:"storage" mapstructure:"storage"`
//	}
package config
