package manager

import "errors"

var (
	// ErrUnknownIdentifier is returned when no manager implementation matches a requested identifier.
	ErrUnknownIdentifier = errors.New("unknown manager identifier")
	// ErrInvalidHandle is returned when a handle does not reference a live manager instance.
	ErrInvalidHandle = errors.New("invalid manager handle")
	// ErrBackendFault is returned when a manager implementation fails while executing an operation.
	ErrBackendFault = errors.New("backend fault")
	// ErrInvalidSettings is returned when a settings dictionary contains non-primitive values.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrInstanceLimit is returned when no further manager instances may be created.
	ErrInstanceLimit = errors.New("manager instance limit reached")
	// ErrBackendUnavailable is returned when the backend runtime does not accept calls.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
