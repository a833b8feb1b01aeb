// Package config loads, normalizes, and validates clientbook configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIENTBOOK_API_TOKEN so credentials never live in source or in the sample
// file. The Config type centralizes every knob the gateway and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
