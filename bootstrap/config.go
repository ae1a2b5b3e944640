package bootstrap

import "github.com/kbukum/datapipe/config"

// Config is what NewApp needs from a process configuration. The service
// section supplies the app name, version and logging; the rest (stores,
// Kafka, report database, pipeline definitions) stays opaque to bootstrap
// and is only defaulted and validated here. config.Config is the
// implementation the datapipe command uses.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
