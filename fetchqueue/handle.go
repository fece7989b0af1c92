/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetchqueue

import (
	"context"
	"net/http"
	"sync"
)

// Handle is returned by Queue.Submit and carries the outcome of one submitted request.
// It is resolved exactly once.
type Handle struct {
	id   string
	done chan struct{}
	once sync.Once
	resp *http.Response
	err  error
}

func newHandle(id string) *Handle {
	return &Handle{id: id, done: make(chan struct{})}
}

// ID returns the identifier of the queue item (it is also logged as "queue_item_id").
func (h *Handle) ID() string {
	return h.id
}

// Done returns a channel that is closed when the handle is resolved.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Resolved reports whether the request has already completed.
func (h *Handle) Resolved() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the request completes and returns its response or transport error.
// Canceling ctx stops only the waiting, the request itself keeps its place in the queue.
// The caller is responsible for closing the response body.
func (h *Handle) Wait(ctx context.Context) (*http.Response, error) {
	select {
	case <-h.done:
		return h.resp, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) resolve(resp *http.Response, err error) bool {
	resolved := false
	h.once.Do(func() {
		h.resp, h.err = resp, err
		close(h.done)
		resolved = true
	})
	return resolved
}
