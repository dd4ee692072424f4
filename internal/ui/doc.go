// Package ui provides helpers for formatting human-readable console output.
//
// ConsoleCommandEventLogger turns git lifecycle events into concise progress
// messages while detailed telemetry continues to flow through the structured
// logger. StatusRenderer prints repository status reports as a styled table,
// as YAML, or as byte-exact porcelain output.
package ui
