package errors

import "errors"

var (
	ErrNotFound = errors.New("basket not found")

	// ErrCodeTaken means a generated code collided with an existing basket.
	ErrCodeTaken = errors.New("basket code already in use")

	ErrCodeSpaceExhausted = errors.New("no free basket code found")
)
