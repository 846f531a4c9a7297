package apperr

import "errors"

var (
	ErrInvalid              = errors.New("invalid argument")
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrBusy                 = errors.New("operation already in progress")
	ErrGeneratorUnavailable = errors.New("metadata generator unavailable")
)
