// Package config loads and merges prgate configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (PRGATE_PROVIDERS, PRGATE_FORMAT,
//     PRGATE_CONCURRENCY, PRGATE_TIMEOUT)
//  3. Config file (--config, $PRGATE_CONFIG, ./prgate.yaml, or
//     $XDG_CONFIG_HOME/prgate/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Init] to write a default config
// file, and [SetField] to update a single key.
package config
