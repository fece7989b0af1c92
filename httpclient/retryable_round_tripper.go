/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/roadnet/roadkit/log"
	"github.com/roadnet/roadkit/retry"
)

// Default parameter values for RetryableRoundTripper.
const (
	DefaultMaxRetryAttempts                  = 10
	DefaultExponentialBackoffInitialInterval = time.Second
	DefaultExponentialBackoffMultiplier      = 2
)

// UnlimitedRetryAttempts should be used as RetryableRoundTripperOpts.MaxRetryAttempts value
// when we want to stop retries only by RetryableRoundTripperOpts.BackoffPolicy.
const UnlimitedRetryAttempts = -1

// RetryAttemptNumberHeader is an HTTP header name that will contain the serial number of the retry attempt.
const RetryAttemptNumberHeader = "X-Retry-Attempt"

// CheckRetryFunc is a function that is called right after RoundTrip() method
// and determines if the next retry attempt is needed.
type CheckRetryFunc func(ctx context.Context, req *http.Request, resp *http.Response, roundTripErr error) (bool, error)

// DefaultBackoffPolicy is a default backoff policy.
var DefaultBackoffPolicy retry.Policy = retry.ExponentialBackoffPolicy{
	InitialInterval: DefaultExponentialBackoffInitialInterval,
	Multiplier:      DefaultExponentialBackoffMultiplier,
}

// RetryableRoundTripper wraps an object that implements http.RoundTripper interface
// and provides a retrying mechanism for HTTP requests.
// When it's used as the fetch queue transport, all attempts of one request occupy a single queue slot.
type RetryableRoundTripper struct {
	// Delegate is used for sending HTTP requests under the hood.
	Delegate http.RoundTripper

	// Logger is used for logging.
	Logger log.FieldLogger

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// MaxRetryAttempts determines how many maximum retry attempts can be done.
	// The total number of sending HTTP request may be MaxRetryAttempts + 1 (the first request is not a retry attempt).
	// If its value is UnlimitedRetryAttempts, it's supposed that retry mechanism will be stopped by BackoffPolicy.
	MaxRetryAttempts int

	// CheckRetry determines if the next retry attempt is needed.
	CheckRetry CheckRetryFunc

	// IgnoreRetryAfter disables using Retry-After HTTP header of the response as a wait time.
	IgnoreRetryAfter bool

	// BackoffPolicy is used for computing wait time before doing the next retry attempt
	// when the given response doesn't contain Retry-After HTTP header or IgnoreRetryAfter is true.
	BackoffPolicy retry.Policy
}

// RetryableRoundTripperOpts represents an options for RetryableRoundTripper.
type RetryableRoundTripperOpts struct {
	Logger           log.FieldLogger
	LoggerProvider   func(ctx context.Context) log.FieldLogger
	MaxRetryAttempts int // DefaultMaxRetryAttempts by default.
	CheckRetryFunc   CheckRetryFunc
	IgnoreRetryAfter bool
	BackoffPolicy    retry.Policy
}

// NewRetryableRoundTripper returns a new instance of RetryableRoundTripper.
func NewRetryableRoundTripper(delegate http.RoundTripper) (*RetryableRoundTripper, error) {
	return NewRetryableRoundTripperWithOpts(delegate, RetryableRoundTripperOpts{})
}

// NewRetryableRoundTripperWithOpts creates a new instance of RetryableRoundTripper with specified options.
func NewRetryableRoundTripperWithOpts(
	delegate http.RoundTripper, opts RetryableRoundTripperOpts,
) (*RetryableRoundTripper, error) {
	if opts.MaxRetryAttempts < 0 && opts.MaxRetryAttempts != UnlimitedRetryAttempts {
		return nil, fmt.Errorf("incorrect max retry attempts")
	}
	if opts.MaxRetryAttempts == 0 {
		opts.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if opts.CheckRetryFunc == nil {
		opts.CheckRetryFunc = DefaultCheckRetry
	}
	if opts.BackoffPolicy == nil {
		opts.BackoffPolicy = DefaultBackoffPolicy
	}
	return &RetryableRoundTripper{
		Delegate:         delegate,
		Logger:           opts.Logger,
		LoggerProvider:   opts.LoggerProvider,
		MaxRetryAttempts: opts.MaxRetryAttempts,
		CheckRetry:       opts.CheckRetryFunc,
		IgnoreRetryAfter: opts.IgnoreRetryAfter,
		BackoffPolicy:    opts.BackoffPolicy,
	}, nil
}

// RoundTrip performs request with retry logic.
func (rt *RetryableRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	logger := loggerFor(ctx, rt.LoggerProvider, rt.Logger)

	rewindBody := func(*http.Request) error { return nil }
	if req.Body != nil && req.Body != http.NoBody {
		originalBody := req.Body
		defer func() {
			_ = originalBody.Close() // Per RoundTripper contract.
		}()
		var err error
		req = req.Clone(ctx) // Per RoundTripper contract, the body is replaced below.
		if rewindBody, err = makeRequestBodyRewindable(req); err != nil {
			return nil, &RetryableRoundTripperError{Inner: err}
		}
	}

	bf := rt.BackoffPolicy.NewBackOff()
	cloned := false

	var resp *http.Response
	var roundTripErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if resp != nil {
				discardResponseBody(resp, logger)
			}
			if err := rewindBody(req); err != nil {
				logger.Error(fmt.Sprintf("failed to rewind request body, %d request(s) done", attempt), log.Error(err))
				return nil, &RetryableRoundTripperError{Inner: err}
			}
			if !cloned {
				req, cloned = req.Clone(ctx), true
			}
			req.Header.Set(RetryAttemptNumberHeader, strconv.Itoa(attempt))
		}

		resp, roundTripErr = rt.Delegate.RoundTrip(req)

		needRetry, checkErr := rt.CheckRetry(ctx, req, resp, roundTripErr)
		if checkErr != nil {
			logger.Error(fmt.Sprintf("failed to check if retry is needed, %d request(s) done", attempt+1), log.Error(checkErr))
			return resp, roundTripErr
		}
		if !needRetry {
			return resp, roundTripErr
		}
		if rt.MaxRetryAttempts > 0 && attempt >= rt.MaxRetryAttempts {
			logger.Warnf("max retry attempts exceeded (%d), %d request(s) done", rt.MaxRetryAttempts, attempt+1)
			return resp, roundTripErr
		}

		waitTime, ok := rt.nextWaitTime(bf, resp)
		if !ok {
			return resp, roundTripErr
		}
		select {
		case <-ctx.Done():
			logger.Warnf("context canceled (%v) while waiting for the next retry attempt, %d request(s) done",
				ctx.Err(), attempt+1)
			return resp, roundTripErr
		case <-time.After(waitTime):
		}
	}
}

func (rt *RetryableRoundTripper) nextWaitTime(bf backoff.BackOff, resp *http.Response) (time.Duration, bool) {
	if resp != nil && !rt.IgnoreRetryAfter {
		if retryAfter, ok := parseRetryAfter(resp); ok {
			return retryAfter, true
		}
	}
	waitTime := bf.NextBackOff()
	return waitTime, waitTime != backoff.Stop
}

// RetryableRoundTripperError is returned in RoundTrip method of RetryableRoundTripper
// when the original request cannot be potentially retried.
type RetryableRoundTripperError struct {
	Inner error
}

func (e *RetryableRoundTripperError) Error() string {
	return fmt.Sprintf("retryable round trip: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *RetryableRoundTripperError) Unwrap() error {
	return e.Inner
}

// DefaultCheckRetry retries temporary network errors, 429 and 5xx responses.
// Only idempotent requests are retried: GET, HEAD, OPTIONS, PUT, DELETE or any request
// which context is marked by NewContextWithIdempotentHint.
func DefaultCheckRetry(ctx context.Context, req *http.Request, resp *http.Response, roundTripErr error) (bool, error) {
	if !isIdempotent(ctx, req) {
		return false, nil
	}
	if roundTripErr != nil {
		return CheckErrorIsTemporary(roundTripErr), nil
	}
	if resp == nil {
		return false, fmt.Errorf("both response and round trip error are nil")
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError, nil
}

func isIdempotent(ctx context.Context, req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return GetIdempotentHintFromContext(ctx)
}

// CheckErrorIsTemporary checks either error is temporary or not.
func CheckErrorIsTemporary(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var terr interface{ Temporary() bool }
	return errors.As(err, &terr) && terr.Temporary()
}

// makeRequestBodyRewindable returns a function that resets the request body before the next attempt.
// GetBody is preferred (the fetch queue always sets it), then seeking, then buffering in memory.
func makeRequestBodyRewindable(req *http.Request) (func(*http.Request) error, error) {
	if req.GetBody != nil {
		return func(r *http.Request) error {
			body, err := r.GetBody()
			if err != nil {
				return fmt.Errorf("get body for retry: %w", err)
			}
			r.Body = body
			return nil
		}, nil
	}

	if seeker, ok := req.Body.(io.ReadSeeker); ok {
		offset, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("seek request body before doing first request: %w", err)
		}
		req.Body = io.NopCloser(req.Body)
		return func(*http.Request) error {
			if _, seekErr := seeker.Seek(offset, io.SeekStart); seekErr != nil {
				return fmt.Errorf("seek request body (offset=%d) for retry: %w", offset, seekErr)
			}
			return nil
		}, nil
	}

	buffered, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("read all request body before doing first request: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(buffered))
	return func(r *http.Request) error {
		r.Body = io.NopCloser(bytes.NewReader(buffered))
		return nil
	}, nil
}

// discardResponseBody reads and closes the body of a response that is going to be retried,
// so the connection can be reused.
func discardResponseBody(resp *http.Response, logger log.FieldLogger) {
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("failed to close previous response body between retry attempts", log.Error(closeErr))
		}
	}()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		logger.Error("failed to discard previous response body between retry attempts", log.Error(err))
	}
}

func parseRetryAfter(resp *http.Response) (time.Duration, bool) {
	val := resp.Header.Get("Retry-After")
	if val == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(val); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	at, err := http.ParseTime(val)
	if err != nil {
		return 0, false
	}
	return time.Until(at), true
}
