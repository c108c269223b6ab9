// Package logs reads the persistent lifeingest log file for `lifeingest logs`.
//
// Tail returns the last N lines or everything after a byte offset, and can
// wait for new lines in follow mode. Memory stays bounded by the line limit.
package logs
