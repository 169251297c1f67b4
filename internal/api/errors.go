package api

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when an API call requiring a token is made
// before Authenticate succeeded.
var ErrNotAuthenticated = errors.New("not authenticated: call Authenticate first")

// AuthError indicates the controller rejected the login or never issued a token.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// DeviceError indicates the controller answered 2xx but reported a failure
// in its {"statusCode": N, "message": "..."} envelope. The firmware uses
// this for most write rejections instead of an HTTP error status.
type DeviceError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *DeviceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("controller rejected %s: statusCode %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("controller rejected %s: statusCode %d", e.Endpoint, e.StatusCode)
}

// RequestError indicates the controller could not be reached at all, such as
// a refused connection, a TLS failure or a timeout.
type RequestError struct {
	Endpoint string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// APIError indicates the controller answered an API call with a non-success
// status. Body carries a short excerpt of the response for diagnostics.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api call %s failed with status %d: %s", e.Endpoint, e.Status, e.Body)
	}
	return fmt.Sprintf("api call %s failed with status %d", e.Endpoint, e.Status)
}
