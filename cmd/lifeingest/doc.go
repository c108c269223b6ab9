// Package main hosts the lifeingest CLI entrypoint and command graph.
//
// The Cobra command tree stages Takeout archives, drives the ingestion
// pipeline, and exposes run history, staging maintenance, and configuration
// scaffolding. Configuration and logging are resolved lazily in one place so
// subcommands only describe their flags and output.
//
// Keep this package thin: behavior belongs in internal packages and is only
// surfaced here.
package main
