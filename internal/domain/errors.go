// Package domain holds the error taxonomy shared across usecases and transport.
package domain

import "errors"

var (
	// ErrBadRequest signals a malformed or out-of-bounds request.
	ErrBadRequest = errors.New("bad request")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrValidationRejected signals a filter pipeline that failed its dry run.
	ErrValidationRejected = errors.New("filter validation rejected")
	// ErrPersistence signals a write failure after validation succeeded.
	// Callers may safely retry the identical submission.
	ErrPersistence = errors.New("persistence failed")
)
