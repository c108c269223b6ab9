// Package preflight provides readiness checks for the filesystem roots an
// ingestion run writes to.
//
// `lifeingest config validate` renders every check; the stager reuses
// FreeBytes to warn before extracting into a nearly full filesystem.
package preflight
