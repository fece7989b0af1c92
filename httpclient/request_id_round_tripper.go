/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/atomic"
)

// RequestIDHeader is the name of the header the lookup service echoes back in responses.
const RequestIDHeader = "X-Request-ID"

// RequestIDRoundTripper sets X-Request-ID header in outgoing requests.
// The lookup service echoes the header only when its value is an unsigned 64-bit integer,
// so generated IDs are always numeric.
type RequestIDRoundTripper struct {
	Delegate http.RoundTripper

	// RequestIDProvider returns an ID for the request.
	// If it's nil or returns an empty string, a numeric ID is generated.
	RequestIDProvider func(ctx context.Context) string
}

// RequestIDRoundTripperOpts represents an options for RequestIDRoundTripper.
type RequestIDRoundTripperOpts struct {
	RequestIDProvider func(ctx context.Context) string
}

// NewRequestIDRoundTripper creates an HTTP transport with X-Request-ID header support.
func NewRequestIDRoundTripper(delegate http.RoundTripper) http.RoundTripper {
	return NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{})
}

// NewRequestIDRoundTripperWithOpts creates an HTTP transport with X-Request-ID header support with options.
func NewRequestIDRoundTripperWithOpts(delegate http.RoundTripper, opts RequestIDRoundTripperOpts) http.RoundTripper {
	return &RequestIDRoundTripper{Delegate: delegate, RequestIDProvider: opts.RequestIDProvider}
}

// RoundTrip adds X-Request-ID header to the request if it is not set yet.
func (rt *RequestIDRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get(RequestIDHeader) != "" {
		return rt.Delegate.RoundTrip(r)
	}

	requestID := GetRequestIDFromContext(r.Context())
	if requestID == "" && rt.RequestIDProvider != nil {
		requestID = rt.RequestIDProvider(r.Context())
	}
	if requestID == "" {
		requestID = NewRequestID()
	}

	r = r.Clone(r.Context()) // Per RoundTripper contract.
	r.Header.Set(RequestIDHeader, requestID)
	return rt.Delegate.RoundTrip(r)
}

var lastRequestID = atomic.NewUint64(uint64(time.Now().UnixNano()))

// NewRequestID returns a new process-unique numeric request ID.
func NewRequestID() string {
	return strconv.FormatUint(lastRequestID.Inc(), 10)
}

// IsValidRequestID reports whether id will be echoed by the lookup service.
func IsValidRequestID(id string) bool {
	_, err := strconv.ParseUint(id, 10, 64)
	return err == nil
}
