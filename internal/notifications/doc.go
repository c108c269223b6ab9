// Package notifications announces finished ingestion runs.
//
// The default implementation publishes to the ntfy topic from config.toml and
// becomes a no-op when no topic is configured. Delivery is best effort: the
// pipeline logs a failed notification and keeps the run's outcome.
package notifications
