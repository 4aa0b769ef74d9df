package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors. These are fatal to constructing a tuned pipeline.
const (
	// ErrCodeInvalidConfig indicates a configuration value outside its domain,
	// such as a negative budget or an unknown algorithm.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeInvalidInput indicates a struct failed tag validation.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected failure inside the module.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeExporter indicates a metrics or trace exporter could not be built.
	ErrCodeExporter ErrorCode = "EXPORTER_ERROR"
)
