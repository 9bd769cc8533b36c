package serviceerrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrContextCanceled    = errors.New("context canceled")
	ErrDeadlineExceeded   = errors.New("deadline exceeded")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
