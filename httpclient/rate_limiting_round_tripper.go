/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Default parameter values for RateLimitingRoundTripper.
const (
	DefaultRateLimitingBurst       = 1
	DefaultRateLimitingWaitTimeout = 15 * time.Second
)

// RateLimitingRoundTripperAdaptation represents params to adapt the rate limit to the value the server
// reports in a response header.
type RateLimitingRoundTripperAdaptation struct {
	ResponseHeaderName string
	SlackPercent       int
}

// RateLimitingRoundTripperOpts represents an options for RateLimitingRoundTripper.
type RateLimitingRoundTripperOpts struct {
	Burst       int
	WaitTimeout time.Duration
	Adaptation  RateLimitingRoundTripperAdaptation
}

// RateLimitingRoundTripper limits the rate (requests per second) of outgoing requests.
// It complements the fetch queue, which limits only the number of requests in flight.
type RateLimitingRoundTripper struct {
	Delegate http.RoundTripper

	RateLimit   int
	Burst       int
	WaitTimeout time.Duration
	Adaptation  RateLimitingRoundTripperAdaptation

	limiter *rate.Limiter
}

// NewRateLimitingRoundTripper creates a new RateLimitingRoundTripper with specified rate limit.
func NewRateLimitingRoundTripper(delegate http.RoundTripper, rateLimit int) (*RateLimitingRoundTripper, error) {
	return NewRateLimitingRoundTripperWithOpts(delegate, rateLimit, RateLimitingRoundTripperOpts{})
}

// NewRateLimitingRoundTripperWithOpts creates a new RateLimitingRoundTripper with specified rate limit and options.
// For options that are not presented, the default values will be used.
func NewRateLimitingRoundTripperWithOpts(
	delegate http.RoundTripper, rateLimit int, opts RateLimitingRoundTripperOpts,
) (*RateLimitingRoundTripper, error) {
	if rateLimit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive")
	}
	if opts.Burst < 0 {
		return nil, fmt.Errorf("burst must be positive")
	}
	if opts.Adaptation.SlackPercent < 0 || opts.Adaptation.SlackPercent > 100 {
		return nil, fmt.Errorf("slack percent must be in range [0..100]")
	}
	if opts.Burst == 0 {
		opts.Burst = DefaultRateLimitingBurst
	}
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = DefaultRateLimitingWaitTimeout
	}
	return &RateLimitingRoundTripper{
		Delegate:    delegate,
		RateLimit:   rateLimit,
		Burst:       opts.Burst,
		WaitTimeout: opts.WaitTimeout,
		Adaptation:  opts.Adaptation,
		limiter:     rate.NewLimiter(rate.Limit(rateLimit), opts.Burst),
	}, nil
}

// RoundTrip waits for the rate limiter and then executes a single HTTP transaction.
func (rt *RateLimitingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := rt.wait(r.Context()); err != nil {
		if r.Body != nil {
			_ = r.Body.Close() // Per RoundTripper contract.
		}
		return nil, err
	}

	resp, err := rt.Delegate.RoundTrip(r)
	if err != nil {
		return resp, err
	}
	if rt.Adaptation.ResponseHeaderName != "" {
		rt.adaptRateLimit(rt.rateLimitFromResponse(resp))
	}
	return resp, nil
}

func (rt *RateLimitingRoundTripper) wait(ctx context.Context) error {
	callerDeadlineBinds := deadlineBindsBefore(ctx, time.Now().Add(rt.WaitTimeout))
	waitCtx, cancel := context.WithTimeout(ctx, rt.WaitTimeout)
	defer cancel()
	if err := rt.limiter.Wait(waitCtx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if callerDeadlineBinds {
			// The limiter refuses up front when the reservation does not fit the deadline,
			// before ctx itself expires.
			return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return &RateLimitingWaitError{Inner: err}
	}
	return nil
}

// deadlineBindsBefore reports whether ctx has a deadline that comes no later than t.
func deadlineBindsBefore(ctx context.Context, t time.Time) bool {
	deadline, ok := ctx.Deadline()
	return ok && !deadline.After(t)
}

func (rt *RateLimitingRoundTripper) rateLimitFromResponse(resp *http.Response) int {
	val := resp.Header.Get(rt.Adaptation.ResponseHeaderName)
	if val == "" {
		return 0
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit < 0 {
		return 0
	}
	limit = limit * (100 - rt.Adaptation.SlackPercent) / 100
	if limit == 0 {
		return 1 // Keep sending 1 request per second instead of stopping completely.
	}
	return limit
}

// adaptRateLimit never raises the limit above the configured one.
// Zero restores the configured limit.
func (rt *RateLimitingRoundTripper) adaptRateLimit(limit int) {
	if limit == 0 || limit > rt.RateLimit {
		limit = rt.RateLimit
	}
	if rt.limiter.Limit() != rate.Limit(limit) {
		rt.limiter.SetLimit(rate.Limit(limit))
	}
}

// CurrentRateLimit returns the rate limit currently applied (it may be lowered by adaptation).
func (rt *RateLimitingRoundTripper) CurrentRateLimit() int {
	return int(rt.limiter.Limit())
}

// RateLimitingWaitError is returned in RoundTrip method of RateLimitingRoundTripper
// when the request cannot be sent within the wait timeout.
type RateLimitingWaitError struct {
	Inner error
}

func (e *RateLimitingWaitError) Error() string {
	return fmt.Sprintf("wait due to client side rate limiting: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *RateLimitingWaitError) Unwrap() error {
	return e.Inner
}

// IsRateLimitingWaitError reports whether err is caused by client side rate limiting.
func IsRateLimitingWaitError(err error) bool {
	var waitErr *RateLimitingWaitError
	return errors.As(err, &waitErr)
}
