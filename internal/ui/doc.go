// Package ui provides helpers for formatting human-readable console output.
//
// The helpers translate audit progress events into concise messages so that
// CLI users can follow a run while detailed telemetry continues to flow
// through structured loggers.
package ui
