package errors

import "errors"

var (
	ErrBasketNotFound = errors.New("basket not found")

	// ErrItemNotFound covers ids never issued and ids already deleted.
	ErrItemNotFound = errors.New("item not found")
)
