package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.applyEnv(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeReporter()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ISO, err = expandPath(strings.TrimSpace(c.Paths.ISO)); err != nil {
		return fmt.Errorf("paths.iso: %w", err)
	}
	if strings.TrimSpace(c.Paths.UserJSON) == "" {
		c.Paths.UserJSON = defaultUserJSON
	}
	if c.Paths.UserJSON, err = expandPath(c.Paths.UserJSON); err != nil {
		return fmt.Errorf("paths.user_json: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.Socket, err = expandPath(strings.TrimSpace(c.Paths.Socket)); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}
	if c.Journal.Path, err = expandPath(strings.TrimSpace(c.Journal.Path)); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.GraphQLURL = strings.TrimSpace(c.API.GraphQLURL)
	if c.API.GraphQLURL == "" {
		c.API.GraphQLURL = defaultGraphQLURL
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = defaultAPITimeoutSeconds
	}
	c.API.ClientVersion = strings.TrimSpace(c.API.ClientVersion)
	if c.API.ClientVersion == "" {
		c.API.ClientVersion = defaultClientVersion
	}
	c.API.Build = strings.TrimSpace(c.API.Build)
}

func (c *Config) normalizeReporter() {
	if c.Reporter.MaxAttempts <= 0 {
		c.Reporter.MaxAttempts = defaultMaxAttempts
	}
	if c.Reporter.BackoffStepMS < 0 {
		c.Reporter.BackoffStepMS = defaultBackoffStepMS
	}
	if c.Reporter.UploadMaxBytes <= 0 {
		c.Reporter.UploadMaxBytes = defaultUploadMaxBytes
	}
	if c.Reporter.StatusQueueSize <= 0 {
		c.Reporter.StatusQueueSize = defaultStatusQueueSize
	}
	if c.Reporter.UploadTimeout <= 0 {
		c.Reporter.UploadTimeout = defaultUploadTimeout
	}
	c.Reporter.ContentRangeHdr = strings.TrimSpace(c.Reporter.ContentRangeHdr)
	if c.Reporter.ContentRangeHdr == "" {
		c.Reporter.ContentRangeHdr = defaultContentRangeHeader
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	if c.Metrics.Bind == "" {
		c.Metrics.Bind = defaultMetricsBind
	}
}
