package worker

import (
	"time"

	"github.com/okian/signupdesk/pkg/logger"
)

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithName sets the loop name used in logs.
func WithName(name string) Option {
	return func(l *Loop) {
		if name != "" {
			l.name = name
		}
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(log logger.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.logger = log
		}
	}
}

// WithShutdownTimeout bounds how long Shutdown waits for queued tasks.
func WithShutdownTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.shutdownTimeout = d
		}
	}
}
