// Package errors provides the structured error type used across the
// autotuner. Every error carries a machine-readable code so callers can
// tell a rejected configuration apart from an internal failure.
package errors
