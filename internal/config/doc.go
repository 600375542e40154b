// Package config loads, normalizes, and validates vidscribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VIDSCRIBE_MODEL_DIR. The Config type centralizes every knob the CLI and the
// batch pipeline need, so model, output, work, and state directories are
// discovered in one pass.
//
// The StateStore persists the last-used model and output directories between
// runs. Always obtain settings through this package so downstream code
// receives sanitized paths and clear validation errors.
package config
