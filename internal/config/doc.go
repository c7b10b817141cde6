// Package config loads, normalizes, and validates ClipForge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPFORGE_SOURCE_API_TOKEN. The Config type centralizes every knob the
// daemon and CLI need, allowing work/library directories, analyzer tuning,
// and external service credentials to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
