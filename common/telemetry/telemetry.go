package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/flowexec/common/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Telemetry hosts the executor's observability surface: health, metrics,
// and (optionally) pprof, on a single echo server.
type Telemetry struct {
	log        *logger.Logger
	echo       *echo.Echo
	addr       string
	enablePprof bool
}

// New creates telemetry components listening on metricsPort.
func New(metricsPort int, enablePprof bool, log *logger.Logger) *Telemetry {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	t := &Telemetry{
		log:         log,
		echo:        e,
		addr:        fmt.Sprintf(":%d", metricsPort),
		enablePprof: enablePprof,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if enablePprof {
		e.GET("/debug/pprof/", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
		e.GET("/debug/pprof/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
		e.GET("/debug/pprof/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))
	}

	return t
}

// Start starts the telemetry HTTP server in the background.
func (t *Telemetry) Start(ctx context.Context) error {
	go func() {
		t.log.Info("telemetry server starting", "addr", t.addr, "pprof", t.enablePprof)
		if err := t.echo.Start(t.addr); err != nil && err != http.ErrServerClosed {
			t.log.Error("telemetry server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.echo.Shutdown(shutdownCtx); err != nil {
			t.log.Error("telemetry server shutdown error", "error", err)
		}
	}()

	return nil
}

// RecordDuration logs an operation's duration at debug level.
func (t *Telemetry) RecordDuration(operation string, start time.Time) {
	duration := time.Since(start)
	t.log.Debug("operation completed",
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	)
}
