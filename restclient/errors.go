package restclient

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// TransportError is a network or decoding failure. The background loops treat
// transport errors as recoverable: the cycle is skipped and the next tick
// retries from unchanged state.
type TransportError struct {
	message string
}

// Error returns the error message for a TransportError.
func (e TransportError) Error() string {
	return e.message
}

// NewTransportError returns a new error that is marked as a recoverable
// transport failure.
func NewTransportError(formatString string, a ...interface{}) TransportError {
	return TransportError{message: fmt.Sprintf(formatString, a...)}
}

// IsTransportError determines whether an error was caused by the transport
// rather than by the server rejecting the request.
func IsTransportError(err error) bool {
	_, ok := err.(TransportError)
	return ok
}

// RequestError is a rejection reported by the server. OwnerMismatch
// distinguishes "the posting exists but your email does not match" from
// NotFound, so callers can surface the two differently.
type RequestError struct {
	StatusCode int
	Message    string
	Fields     map[string][]string
}

// Error returns the error message for a RequestError.
func (e RequestError) Error() string {
	return fmt.Sprintf("request rejected (%d): %s", e.StatusCode, e.Message)
}

// NotFound determines whether the server reported that the posting is missing.
func (e RequestError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// OwnerMismatch determines whether the server rejected the operation because the
// supplied email does not match the posting's owner.
func (e RequestError) OwnerMismatch() bool {
	return e.StatusCode == http.StatusForbidden
}

// errorBody is the error response shape produced by the API.
type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// apiError converts a non-2xx response into a RequestError.
func apiError(response *resty.Response) error {
	requestError := RequestError{
		StatusCode: response.StatusCode(),
		Message:    http.StatusText(response.StatusCode()),
	}
	if body, ok := response.Error().(*errorBody); ok && body != nil && body.Message != "" {
		requestError.Message = body.Message
		requestError.Fields = body.Errors
	}
	return requestError
}
