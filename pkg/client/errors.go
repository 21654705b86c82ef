package client

import (
	"errors"
	"fmt"
	"net/http"
)

// NotFoundError means the basket or item does not exist. Retrying will not
// help.
type NotFoundError struct {
	Message string
	Code    string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Message
}

// ValidationError is a 400: the request itself was rejected.
type ValidationError struct {
	Message string
	Code    string
	Details map[string]any
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Message
}

// TransientNetworkError covers transport failures, timeouts, 429 and 5xx.
// The same request may succeed later.
type TransientNetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransientNetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// APIError is any other non-2xx answer.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsTransient(err error) bool {
	var target *TransientNetworkError
	return errors.As(err, &target)
}

func errorFromResponse(op string, resp *Response) error {
	var body errorBody
	_ = resp.DecodeJSON(&body)
	msg := GetErrorMessage(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Message: msg, Code: body.Code}
	case resp.StatusCode == http.StatusBadRequest:
		return &ValidationError{Message: msg, Code: body.Code, Details: body.Details}
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return &TransientNetworkError{Op: op, Status: resp.StatusCode, Err: errors.New(msg)}
	}
	return &APIError{Status: resp.StatusCode, Code: body.Code, Message: msg}
}
