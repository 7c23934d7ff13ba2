package service

import "errors"

// Sentinel errors the handlers translate to HTTP statuses. Anything else a
// service returns is treated as an internal (store) failure — callers must
// fail closed, never grant on error.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid request")
)
