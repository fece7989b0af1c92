/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package roadquery

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidConfiguration is returned when the client cannot be built from the given configuration.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrRequestIDMismatch is returned when the lookup service echoes a request id different from the sent one.
var ErrRequestIDMismatch = errors.New("request id mismatch")

// ErrMalformedResponse is returned when the response body is not a JSON array.
var ErrMalformedResponse = errors.New("malformed response")

// ResponseError is returned when the lookup service answers with a non-2xx status code.
type ResponseError struct {
	StatusCode int
	RequestID  string
	Body       []byte
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("lookup service responded with status %d (%s)", e.StatusCode, http.StatusText(e.StatusCode))
	if e.RequestID != "" {
		msg += ", request id " + e.RequestID
	}
	if len(e.Body) != 0 {
		msg += ": " + string(e.Body)
	}
	return msg
}

// Temporary reports whether the same request may succeed later.
func (e *ResponseError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
