// Package utils exposes reusable helpers consumed by the CLI and the audit command.
//
// It houses ConfigurationLoader and LoggerFactory abstractions that integrate
// Viper, environment variables, and zap logging, plus small I/O helpers.
package utils
