// Package config loads, defaults, normalizes, and validates the TOML
// configuration for the engine. Callers get a fully expanded Config with
// every path absolute and every interval positive, or an error describing
// the first offending key.
package config
