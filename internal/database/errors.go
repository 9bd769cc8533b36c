package databaseerrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrProductUnavailable = errors.New("product unavailable")
)
