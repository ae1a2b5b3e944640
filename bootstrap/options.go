package bootstrap

import (
	"os"
	"time"

	"github.com/kbukum/datapipe/logger"
)

// DefaultGracefulTimeout bounds the stop hooks and component shutdown.
const DefaultGracefulTimeout = 15 * time.Second

// Option customizes an App.
type Option func(*settings)

type settings struct {
	log     *logger.Logger
	grace   time.Duration
	signals []os.Signal
}

// WithLogger replaces the logger built from the logging config section.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithGracefulTimeout overrides DefaultGracefulTimeout.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithSignals replaces the signals that cancel a running task.
func WithSignals(sig ...os.Signal) Option {
	return func(s *settings) { s.signals = sig }
}
