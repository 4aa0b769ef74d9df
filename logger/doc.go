// Package logger provides structured logging for the autotuner using
// zerolog.
//
// Components take a *Logger explicitly; the package-level global exists
// only as a fallback for code constructed without one.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("autotune")
//	log.Debug("optimization pass", logger.Fields(logger.FieldDuration, 3))
package logger
