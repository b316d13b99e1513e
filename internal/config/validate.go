package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateReporter(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.GraphQLURL)
	if err != nil {
		return fmt.Errorf("api.graphql_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.graphql_url must use http or https, got %q", c.API.GraphQLURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("api.graphql_url must include a host, got %q", c.API.GraphQLURL)
	}
	return nil
}

func (c *Config) validateReporter() error {
	if c.Reporter.MaxAttempts > 50 {
		return errors.New("reporter.max_attempts must be 50 or fewer")
	}
	if c.Reporter.BackoffStepMS > 60000 {
		return errors.New("reporter.backoff_step_ms must be 60000 or fewer")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}
