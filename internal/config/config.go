package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Analyzer service
	AnalyzerBaseURL string
	AnalyzerTimeout time.Duration

	// Uploads
	MaxUploadBytes int64

	// AMQP (optional, disabled when URL is empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// View cache
	CacheSize       int
	CacheTTL        time.Duration
	CleanupInterval time.Duration

	// Statement year fallback; 0 means current year
	DefaultStatementYear int
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		AnalyzerBaseURL: getEnv("ANALYZER_BASE_URL", "http://localhost:8000"),
		AnalyzerTimeout: getEnvDuration("ANALYZER_TIMEOUT", 2*time.Minute),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 25<<20),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "carddash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "analysis_completed"),

		CacheSize:       getEnvInt("CACHE_SIZE", 128),
		CacheTTL:        getEnvDuration("CACHE_TTL", 10*time.Minute),
		CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Minute),

		DefaultStatementYear: getEnvInt("DEFAULT_STATEMENT_YEAR", 0),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate analyzer base URL
	if c.AnalyzerBaseURL == "" {
		errors = append(errors, "analyzer base URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.AnalyzerBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid analyzer base URL '%s': %v", c.AnalyzerBaseURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid analyzer base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.AnalyzerTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid analyzer timeout %v: must be at least 1 second", c.AnalyzerTimeout))
	}

	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1 byte", c.MaxUploadBytes))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate cache configuration
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.CleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CleanupInterval))
	}

	if c.DefaultStatementYear != 0 && (c.DefaultStatementYear < 2000 || c.DefaultStatementYear > 2100) {
		errors = append(errors, fmt.Sprintf("invalid default statement year %d: must be 0 or between 2000 and 2100", c.DefaultStatementYear))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
