// Package config loads, normalizes, and validates the TOML configuration for
// the revoice daemon and CLI.
package config
