package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrHintNotFound  = errors.New("hint not found")
	ErrEntryNotFound = errors.New("entry not found")
	ErrReadFailure   = errors.New("read failure")
)
