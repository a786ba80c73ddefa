// Package config provides the configuration of a scrape run: defaults,
// validation, and the optional YAML file with per-site overrides.
package config
