// Package config loads, normalizes, and validates the TOML configuration
// that drives the render pipeline.
package config
