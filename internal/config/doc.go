// Package config loads, normalizes, and validates the reporter daemon's TOML
// configuration.
//
// Load resolves the configuration path (explicit flag, then
// ~/.config/gamereporter/config.toml, then ./gamereporter.toml), decodes it
// over Default(), expands ~ in every path field, and rejects values the
// pipeline cannot run with. CreateSample writes the embedded sample file used
// by `gamereporter config init`.
package config
