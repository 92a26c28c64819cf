package bootstrap

import (
	"github.com/lyzr/flowexec/common/config"
	"github.com/lyzr/flowexec/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipTelemetry bool
	skipRedis     bool
	customLogger  *logger.Logger
	customConfig  *config.Config
}

// WithoutTelemetry skips starting the telemetry HTTP server
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithoutRedis skips connecting to Redis even if a broker is configured.
// Useful for tests that exercise the engine without the outbox publisher.
func WithoutRedis() Option {
	return func(o *options) {
		o.skipRedis = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

func defaultOptions() *options {
	return &options{
		skipTelemetry: false,
		skipRedis:     false,
	}
}
