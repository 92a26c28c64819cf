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

// Components holds all initialized service dependencies. The executor owns
// no persistent state, so unlike the platform's other services this carries
// no DB/queue/cache handles — only config, logging, metrics, the telemetry
// surface, and (when a broker is configured) a Redis client for the outbox
// publisher.
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	Metrics   *metrics.Registry
	Telemetry *telemetry.Telemetry
	Redis     *goredis.Client // nil unless Publisher.Brokers is configured

	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components.
// Should be called with defer after Setup().
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errs []error

	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errs = append(errs, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks health of all components that can be unhealthy.
func (c *Components) Health(ctx context.Context) error {
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}
	return nil
}

func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
