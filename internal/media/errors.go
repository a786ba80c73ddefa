package media

import "errors"

var (
	// ErrInvalidExtension is returned when a reference does not end with an
	// allow-listed extension for its kind.
	ErrInvalidExtension = errors.New("extension not allowed")

	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrIdleTimeout is returned when no bytes arrive within the kind's
	// timeout.
	ErrIdleTimeout = errors.New("download stalled")

	// ErrUnknownKind is returned for a reference with no allow-list.
	ErrUnknownKind = errors.New("unknown media kind")
)
