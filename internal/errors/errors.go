package errors

import "errors"

// This package defines the centralized set of sentinel errors for the
// application. Services return these recognizable errors without coupling
// themselves to HTTP status codes; the API layer checks them with
// `errors.Is()` and maps them to the right responses.

var (
	// ErrConfiguration signifies that required configuration is missing or
	// invalid. It is fatal at startup and never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrBackend signifies that the inference backend answered with a
	// non-success HTTP status. The raw response body is logged for
	// operators; clients only ever see a generic fallback.
	ErrBackend = errors.New("backend request failed")

	// ErrTransport signifies a network-level failure reaching the backend
	// (DNS, connection refused, timeout). For user-facing purposes it is
	// treated exactly like ErrBackend; the distinction exists for logs.
	ErrTransport = errors.New("backend unreachable")

	// ErrNotFound signifies that a requested resource could not be located.
	// Mapped to 404 Not Found.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that client input failed validation.
	// Mapped to 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signifies that an operation conflicts with the current
	// state of a resource, e.g. submitting a message while another request
	// is still in flight on the same session. Mapped to 409 Conflict.
	ErrConflict = errors.New("resource conflict")

	// ErrInternal signifies an unexpected server-side error. Generic by
	// design so implementation details never leak to the client.
	ErrInternal = errors.New("internal server error")
)
