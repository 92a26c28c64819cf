package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all executor configuration
type Config struct {
	Service       ServiceConfig
	Flows         FlowConfig
	Collaborators CollaboratorConfig
	Publisher     PublisherConfig
	Telemetry     TelemetryConfig
}

// ServiceConfig holds process-wide settings
type ServiceConfig struct {
	Name      string
	LogLevel  string
	LogFormat string
}

// FlowConfig controls where textual and compiled flows are read from
type FlowConfig struct {
	TextualDir string
	BinaryDir  string
}

// CollaboratorConfig holds endpoint/timeout/retry settings for the
// remote collaborators node handlers call
type CollaboratorConfig struct {
	FAQSearchURL    string
	LLMAnswerURL    string
	ComplaintLogURL string
	DocumentCRUDURL string
	NotifyURL       string

	DefaultTimeout time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryCap       time.Duration
	RateLimitRPS   float64
}

// PublisherConfig controls the outbox side-effect publisher
type PublisherConfig struct {
	Brokers []string // empty => publisher is a no-op
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	MetricsPort int
	EnablePprof bool
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:      serviceName,
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "text"),
		},
		Flows: FlowConfig{
			TextualDir: getEnv("FLOW_TEXTUAL_DIR", "./flows"),
			BinaryDir:  getEnv("FLOW_BINARY_DIR", "./flows/compiled"),
		},
		Collaborators: CollaboratorConfig{
			FAQSearchURL:    getEnv("FAQ_SEARCH_URL", "http://localhost:9101"),
			LLMAnswerURL:    getEnv("LLM_ANSWER_URL", "http://localhost:9102"),
			ComplaintLogURL: getEnv("COMPLAINT_LOG_URL", "http://localhost:9103"),
			DocumentCRUDURL: getEnv("DOCUMENT_CRUD_URL", "http://localhost:9104"),
			NotifyURL:       getEnv("NOTIFY_URL", "http://localhost:9105"),
			DefaultTimeout:  getEnvDuration("COLLABORATOR_TIMEOUT", 8*time.Second),
			RetryAttempts:   getEnvInt("COLLABORATOR_RETRY_ATTEMPTS", 3),
			RetryBaseDelay:  getEnvDuration("COLLABORATOR_RETRY_BASE_DELAY", 200*time.Millisecond),
			RetryCap:        getEnvDuration("COLLABORATOR_RETRY_CAP", 2*time.Second),
			RateLimitRPS:    getEnvFloat("COLLABORATOR_RATE_LIMIT_RPS", 50),
		},
		Publisher: PublisherConfig{
			Brokers: getEnvSlice("EVENT_SINK_BROKERS", nil),
		},
		Telemetry: TelemetryConfig{
			MetricsPort: getEnvInt("METRICS_PORT", 9090),
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if c.Collaborators.RetryAttempts < 0 {
		return fmt.Errorf("collaborator retry attempts must be >= 0")
	}
	if c.Telemetry.MetricsPort < 1 || c.Telemetry.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Telemetry.MetricsPort)
	}
	return nil
}

// PublisherEnabled reports whether an outbox sink is configured
func (c *Config) PublisherEnabled() bool {
	return len(c.Publisher.Brokers) > 0
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
