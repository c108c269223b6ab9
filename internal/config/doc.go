// Package config loads, normalizes, and validates lifeingest configuration.
//
// Configuration is TOML, searched for at the --config path, then
// ~/.config/lifeingest/config.toml, then ./lifeingest.toml. Missing files fall
// back to repository defaults. All path fields are expanded (including ~) and
// made absolute before validation so callers never deal with relative roots.
//
// EnsureDirectories creates the upload, extraction, output, and log roots and
// is safe to call on every run.
package config
