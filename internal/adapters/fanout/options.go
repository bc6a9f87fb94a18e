package fanout

import "github.com/brickfield/appraisal/pkg/logger"

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithLogger sets a custom logger for the Manager.
func WithLogger(log logger.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}
