package marche

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidConfig is returned by NewClient for an unusable Config
	ErrInvalidConfig = errors.New("marche: invalid client configuration")

	// ErrNetwork matches failures where no HTTP response was received
	ErrNetwork = errors.New("marche: network error")

	// ErrValidation matches 400 responses
	ErrValidation = errors.New("marche: validation error")

	// ErrUnauthorized matches 401 responses
	ErrUnauthorized = errors.New("marche: authentication required")

	// ErrForbidden matches 403 responses
	ErrForbidden = errors.New("marche: access denied")

	// ErrNotFound matches 404 responses
	ErrNotFound = errors.New("marche: not found")

	// ErrConflict matches 409 responses
	ErrConflict = errors.New("marche: conflict")

	// ErrServer matches 5xx responses
	ErrServer = errors.New("marche: server error")

	// ErrUnexpected matches any other non-success response
	ErrUnexpected = errors.New("marche: unexpected response")
)

// APIError is returned for every failed call. Status is 0 when the request
// never got a response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Method  string
	Path    string
	Err     error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: network error: %s", e.Method, e.Path, msg)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is lets callers match an APIError against the status sentinels.
func (e *APIError) Is(target error) bool {
	return e.kind() == target
}

func (e *APIError) kind() error {
	switch {
	case e.Status == 0:
		return ErrNetwork
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return ErrValidation
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status >= 500:
		return ErrServer
	default:
		return ErrUnexpected
	}
}

// StatusOf extracts the HTTP status carried by err, 0 when err is not an
// APIError or no response was received.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf extracts the server supplied message carried by err, if any.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Message
	}
	return ""
}
