/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"

	"github.com/roadnet/roadkit/log"
)

type ctxKey int

const (
	ctxKeyRequestType ctxKey = iota
	ctxKeyIdempotentHint
	ctxKeyRequestID
	ctxKeyLogger
)

func getStringFromContext(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// NewContextWithRequestType creates a new context with request type (e.g. "batch-lookup").
// It overrides Opts.RequestType in logs and metrics.
func NewContextWithRequestType(ctx context.Context, requestType string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestType, requestType)
}

// GetRequestTypeFromContext extracts request type from the context.
func GetRequestTypeFromContext(ctx context.Context) string {
	return getStringFromContext(ctx, ctxKeyRequestType)
}

// NewContextWithRequestID creates a new context with the value for the X-Request-ID header.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// GetRequestIDFromContext extracts request ID from the context.
func GetRequestIDFromContext(ctx context.Context) string {
	return getStringFromContext(ctx, ctxKeyRequestID)
}

// NewContextWithLogger creates a new context with the logger used by the round trippers for this request.
func NewContextWithLogger(ctx context.Context, logger log.FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// GetLoggerFromContext extracts logger from the context. Nil is returned if there is no logger.
func GetLoggerFromContext(ctx context.Context) log.FieldLogger {
	logger, _ := ctx.Value(ctxKeyLogger).(log.FieldLogger)
	return logger
}

// NewContextWithIdempotentHint returns a derived context that carries an "idempotent request" hint.
// Batch lookups are sent as POST but do not change anything on the server, so they are marked
// with this hint to let RetryableRoundTripper retry them.
func NewContextWithIdempotentHint(ctx context.Context, isIdempotent bool) context.Context {
	return context.WithValue(ctx, ctxKeyIdempotentHint, isIdempotent)
}

// GetIdempotentHintFromContext extracts the "idempotent request" hint from context.
// Returns false when the key is not present.
func GetIdempotentHintFromContext(ctx context.Context) bool {
	b, _ := ctx.Value(ctxKeyIdempotentHint).(bool)
	return b
}

func loggerFor(ctx context.Context, provider func(ctx context.Context) log.FieldLogger, fallback log.FieldLogger) log.FieldLogger {
	if provider != nil {
		if logger := provider(ctx); logger != nil {
			return logger
		}
	}
	if logger := GetLoggerFromContext(ctx); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return log.NewDisabledLogger()
}
