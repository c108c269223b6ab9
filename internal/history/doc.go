// Package history records ingestion runs in SQLite.
//
// Each run stores its totals, one row per archive in upload order, and one
// row per discovered file so failures can be inspected after the fact with
// `lifeingest runs show`. The database is an audit trail only; ingestion never
// reads it back to make decisions.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema.
package history
