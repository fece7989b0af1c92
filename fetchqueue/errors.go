/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetchqueue

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned when a queue is constructed with unusable parameters
// (non-positive concurrency limit, unknown dispatch order).
var ErrInvalidConfiguration = errors.New("invalid queue configuration")

// ErrInvalidRequest resolves a handle whose request could not be built (e.g. empty target).
// The transport is not called for such items.
var ErrInvalidRequest = errors.New("invalid request")

// TransportPanicError resolves a handle whose Doer panicked.
type TransportPanicError struct {
	Value interface{}
}

func (e *TransportPanicError) Error() string {
	return fmt.Sprintf("transport panic: %v", e.Value)
}
