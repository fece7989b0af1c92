/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds the outbound HTTP transport chain used by the fetch queue:
// retries, numeric request ids, user agent, rate limiting, metrics and logging.
package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roadnet/roadkit/log"
)

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// UserAgent is a user agent string. DefaultUserAgent is used if empty.
	UserAgent string

	// RequestType is a type of request, e.g. "batch-lookup". Used in logs and metrics.
	RequestType string

	// Delegate is the innermost RoundTripper in the chain. A clone of http.DefaultTransport is used if nil.
	Delegate http.RoundTripper

	// Logger is used when the request context carries no logger.
	Logger log.FieldLogger

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// RequestIDProvider is a function that provides a request ID.
	RequestIDProvider func(ctx context.Context) string

	// MetricsCollector is a metrics collector. Used only when metrics are enabled in the config.
	MetricsCollector MetricsCollector
}

// New creates an HTTP client with the transport chain configured by cfg.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// Must creates an HTTP client and panics if any error occurs.
func Must(cfg *Config) *http.Client {
	client, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// NewWithOpts creates an HTTP client with the transport chain configured by cfg and opts.
// From outer to inner the chain is: request id, retryable, user agent, rate limiting, metrics, logging.
// All retry attempts of a request share one request id. Each attempt is rate limited, measured and logged.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	var err error
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	if cfg.Log.Enabled {
		logOpts := cfg.Log.TransportOpts()
		logOpts.Logger = opts.Logger
		logOpts.LoggerProvider = opts.LoggerProvider
		delegate = NewLoggingRoundTripperWithOpts(delegate, opts.RequestType, logOpts)
	}

	if cfg.Metrics.Enabled {
		if opts.MetricsCollector == nil {
			return nil, fmt.Errorf("metrics are enabled but no metrics collector is provided")
		}
		delegate = NewMetricsRoundTripperWithOpts(delegate, MetricsRoundTripperOpts{
			RequestType: opts.RequestType,
			Collector:   opts.MetricsCollector,
		})
	}

	if cfg.RateLimits.Enabled {
		if delegate, err = NewRateLimitingRoundTripperWithOpts(
			delegate, cfg.RateLimits.Limit, cfg.RateLimits.TransportOpts(),
		); err != nil {
			return nil, fmt.Errorf("create rate limiting round tripper: %w", err)
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	delegate = NewUserAgentRoundTripper(delegate, userAgent)

	if cfg.Retries.Enabled {
		retryOpts := cfg.Retries.TransportOpts()
		retryOpts.Logger = opts.Logger
		retryOpts.LoggerProvider = opts.LoggerProvider
		if delegate, err = NewRetryableRoundTripperWithOpts(delegate, retryOpts); err != nil {
			return nil, fmt.Errorf("create retryable round tripper: %w", err)
		}
	}

	delegate = NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{
		RequestIDProvider: opts.RequestIDProvider,
	})

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}, nil
}

// MustWithOpts creates an HTTP client with options and panics if any error occurs.
func MustWithOpts(cfg *Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}
