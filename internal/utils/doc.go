// Package utils exposes reusable helpers consumed by the command-line surface.
//
// It houses ConfigurationLoader and LoggerFactory abstractions that integrate
// Viper, environment variables and zap logging (optionally rotated through
// lumberjack), plus the context accessor carrying per-invocation settings.
package utils
