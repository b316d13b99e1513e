package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Environment variables that override values from the config file.
const (
	EnvGraphQLURL = "GAMEREPORTER_GRAPHQL_URL"
	EnvISO        = "GAMEREPORTER_ISO"
	EnvUserJSON   = "GAMEREPORTER_USER_JSON"
	EnvLogLevel   = "GAMEREPORTER_LOG_LEVEL"
)

type envOverrides struct {
	GraphQLURL string `env:"GAMEREPORTER_GRAPHQL_URL"`
	ISO        string `env:"GAMEREPORTER_ISO"`
	UserJSON   string `env:"GAMEREPORTER_USER_JSON"`
	LogLevel   string `env:"GAMEREPORTER_LOG_LEVEL"`
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	override := func(dst *string, value string) {
		if value = strings.TrimSpace(value); value != "" {
			*dst = value
		}
	}
	override(&c.API.GraphQLURL, o.GraphQLURL)
	override(&c.Paths.ISO, o.ISO)
	override(&c.Paths.UserJSON, o.UserJSON)
	override(&c.Logging.Level, o.LogLevel)
	return nil
}
