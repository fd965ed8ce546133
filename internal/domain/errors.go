package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// location or session does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. blank name, unknown address style).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrIngestionInProgress is returned when a photo batch is submitted to a
// session that is still resolving an earlier batch.
// Handlers should map this to HTTP 409 Conflict.
var ErrIngestionInProgress = errors.New("photo ingestion in progress")
