package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/flowexec/common/config"
	"github.com/lyzr/flowexec/common/logger"
	"github.com/lyzr/flowexec/common/metrics"
	"github.com/lyzr/flowexec/common/telemetry"
	goredis "github.com/redis/go-redis/v9"
)

// Setup initializes all process-wide components shared by the executor's
// entry points: config, logger, metrics registry, telemetry surface, and
// (when the outbox is configured) a Redis client. This is the executor's
// equivalent of the platform's service Setup(), trimmed to what a
// stateless interpreter needs.
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service", "service", serviceName)

	// 3. Initialize metrics registry
	components.Metrics = metrics.NewRegistry()

	// 4. Initialize Redis client for the outbox publisher, if configured
	if !options.skipRedis && components.Config.PublisherEnabled() {
		components.Logger.Info("connecting to redis", "addr", components.Config.Publisher.Brokers[0])
		components.Redis = goredis.NewClient(&goredis.Options{
			Addr: components.Config.Publisher.Brokers[0],
		})

		if err := components.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	// 5. Initialize telemetry
	if !options.skipTelemetry {
		components.Logger.Info("initializing telemetry", "port", components.Config.Telemetry.MetricsPort)
		components.Telemetry = telemetry.New(
			components.Config.Telemetry.MetricsPort,
			components.Config.Telemetry.EnablePprof,
			components.Logger,
		)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
		}
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"redis", components.Redis != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error.
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
