package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidTimeout  ErrorCode = "invalid_probe_timeout"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Process errors
	ErrAlreadyRunning ErrorCode = "already_running"
	ErrMainLoop       ErrorCode = "main_loop_failed"

	// Control errors, returned by dispatch and display operations
	ErrUnavailable      ErrorCode = "control_unavailable"
	ErrOutOfRange       ErrorCode = "control_out_of_range"
	ErrPermissionDenied ErrorCode = "control_permission_denied"
	ErrSpawnFailed      ErrorCode = "control_spawn_failed"
	ErrNoSuchMode       ErrorCode = "display_no_such_mode"

	// Detection errors. Never returned to callers of the detection layer,
	// they only appear in debug logs.
	ErrProbeTimeout ErrorCode = "probe_timeout"
	ErrProbeFailed  ErrorCode = "probe_failed"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrNotImplemented:   "Operation not implemented",
	ErrInvalidConfig:    "Invalid configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrReadConfig:       "Failed to read config file",
	ErrInvalidInterval:  "Invalid interval value",
	ErrInvalidTimeout:   "Invalid probe timeout",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrMainLoop:         "Error in main loop",
	ErrUnavailable:      "Control is not available",
	ErrOutOfRange:       "Value out of range",
	ErrPermissionDenied: "Permission denied",
	ErrSpawnFailed:      "Failed to start backend command",
	ErrNoSuchMode:       "No matching display mode",
	ErrProbeTimeout:     "Probe timed out",
	ErrProbeFailed:      "Probe failed",
	ErrOperationFailed:  "Operation failed",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
