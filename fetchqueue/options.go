/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetchqueue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/roadnet/roadkit/log"
)

// Doer performs a single HTTP request. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc is an adapter to allow the use of ordinary functions as Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

// Do implements Doer.
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Order determines which pending request is dispatched when a slot becomes free.
type Order string

// Dispatch orders.
const (
	OrderFIFO Order = "fifo"
	OrderLIFO Order = "lifo"
)

// IsValid checks if the order is known.
func (o Order) IsValid() bool {
	return o == OrderFIFO || o == OrderLIFO
}

// RequestOptions describes the request sent to the submitted target.
// Zero value means GET without headers and body.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   []byte
}

func newRequest(ctx context.Context, target string, opts RequestOptions) (*http.Request, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: empty target", ErrInvalidRequest)
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return req, nil
}

// Opts contains optional parameters for constructing Queue.
type Opts struct {
	// Doer performs the requests. http.DefaultClient is used by default.
	Doer Doer

	// Order of dispatching pending requests. OrderFIFO is used by default.
	Order Order

	// Logger is used for logging dispatches and failures. Logging is disabled by default.
	Logger log.FieldLogger

	// MetricsCollector receives queue metrics. Metrics are disabled by default.
	MetricsCollector MetricsCollector
}
