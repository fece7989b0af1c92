/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetchqueue

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"

	"github.com/roadnet/roadkit/log"
)

// DefaultConcurrencyLimit is the number of simultaneous requests used when nothing else is configured.
const DefaultConcurrencyLimit = 30

// Stats is a point-in-time snapshot of the queue state.
type Stats struct {
	Pending      int
	InFlight     int
	PeakInFlight int
	Completed    int64
	Failed       int64
}

type drainWaiter struct {
	id uint64
	cb func()
}

type item struct {
	id         string
	req        *http.Request
	buildErr   error
	handle     *Handle
	enqueuedAt time.Time
}

func (it *item) target() string {
	if it.req == nil || it.req.URL == nil {
		return ""
	}
	return it.req.URL.String()
}

// Queue dispatches submitted requests so that at most the configured number of them are in flight.
// It is safe for concurrent use.
type Queue struct {
	limit   int
	doer    Doer
	order   Order
	logger  log.FieldLogger
	metrics MetricsCollector

	mu           sync.Mutex
	pending      []*item
	inFlight     int
	peakInFlight int
	drainWaiters []drainWaiter
	nextWaiterID uint64

	completed atomic.Int64
	failed    atomic.Int64
}

// New creates a new Queue that runs at most concurrencyLimit requests at once.
func New(concurrencyLimit int) (*Queue, error) {
	return NewWithOpts(concurrencyLimit, Opts{})
}

// NewWithOpts creates a new Queue with the given options.
// The concurrency limit must be positive, it is never clamped.
func NewWithOpts(concurrencyLimit int, opts Opts) (*Queue, error) {
	if concurrencyLimit <= 0 {
		return nil, fmt.Errorf("%w: concurrency limit must be positive, got %d", ErrInvalidConfiguration, concurrencyLimit)
	}
	if opts.Order == "" {
		opts.Order = OrderFIFO
	}
	if !opts.Order.IsValid() {
		return nil, fmt.Errorf("%w: unknown order %q", ErrInvalidConfiguration, opts.Order)
	}
	if opts.Doer == nil {
		opts.Doer = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetricsCollector
	}
	return &Queue{
		limit:   concurrencyLimit,
		doer:    opts.Doer,
		order:   opts.Order,
		logger:  opts.Logger,
		metrics: opts.MetricsCollector,
	}, nil
}

// Must wraps New and panics if the queue cannot be created.
func Must(concurrencyLimit int) *Queue {
	return MustWithOpts(concurrencyLimit, Opts{})
}

// MustWithOpts wraps NewWithOpts and panics if the queue cannot be created.
func MustWithOpts(concurrencyLimit int, opts Opts) *Queue {
	q, err := NewWithOpts(concurrencyLimit, opts)
	if err != nil {
		panic(err)
	}
	return q
}

// NewFromConfig creates a new Queue from the loaded configuration.
// Order from opts has priority over the configured one.
func NewFromConfig(cfg *Config, opts Opts) (*Queue, error) {
	if opts.Order == "" {
		opts.Order = cfg.Order
	}
	return NewWithOpts(cfg.ConcurrencyLimit, opts)
}

// ConcurrencyLimit returns the maximum number of simultaneously running requests.
func (q *Queue) ConcurrencyLimit() int {
	return q.limit
}

// Submit enqueues a request to target and returns its handle immediately.
// A request that cannot be built (e.g. empty target) is not sent, its handle
// is resolved with an error wrapping ErrInvalidRequest.
func (q *Queue) Submit(ctx context.Context, target string, opts RequestOptions) *Handle {
	req, err := newRequest(ctx, target, opts)
	return q.enqueue(req, err)
}

// SubmitRequest enqueues an already built request and returns its handle immediately.
func (q *Queue) SubmitRequest(req *http.Request) *Handle {
	if req == nil {
		return q.enqueue(nil, fmt.Errorf("%w: nil request", ErrInvalidRequest))
	}
	return q.enqueue(req, nil)
}

func (q *Queue) enqueue(req *http.Request, buildErr error) *Handle {
	id := xid.New().String()
	it := &item{id: id, req: req, buildErr: buildErr, handle: newHandle(id), enqueuedAt: time.Now()}

	q.mu.Lock()
	q.pending = append(q.pending, it)
	waiters := q.scheduleLocked()
	q.mu.Unlock()

	q.fireDrainWaiters(waiters)
	return it.handle
}

// OnDrain registers a callback that is invoked once, the next time the queue has
// no pending and no in-flight requests. Registering while the queue is idle does
// not invoke the callback, it waits for the next drain.
// Callbacks run synchronously in the goroutine that completed the last request and
// may submit new requests.
//
// The drain is detected under the queue lock, but callbacks are invoked after it is released.
// A request submitted concurrently from another goroutine may therefore already be pending
// or in flight when a callback runs. Such a request leads to its own drain later.
func (q *Queue) OnDrain(cb func()) {
	if cb == nil {
		return
	}
	q.addDrainWaiter(cb)
}

// WaitDrain blocks until the next drain or until ctx is done.
// A wait abandoned because of ctx leaves nothing registered on the queue.
func (q *Queue) WaitDrain(ctx context.Context) error {
	drained := make(chan struct{})
	id := q.addDrainWaiter(func() { close(drained) })
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		if !q.removeDrainWaiter(id) {
			// Already detached by a drain that is firing right now.
			<-drained
			return nil
		}
		return ctx.Err()
	}
}

func (q *Queue) addDrainWaiter(cb func()) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextWaiterID++
	q.drainWaiters = append(q.drainWaiters, drainWaiter{id: q.nextWaiterID, cb: cb})
	return q.nextWaiterID
}

// removeDrainWaiter reports false if the waiter is no longer registered.
func (q *Queue) removeDrainWaiter(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.drainWaiters {
		if q.drainWaiters[i].id == id {
			q.drainWaiters = append(q.drainWaiters[:i], q.drainWaiters[i+1:]...)
			return true
		}
	}
	return false
}

// Stats returns the current state of the queue.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pending:      len(q.pending),
		InFlight:     q.inFlight,
		PeakInFlight: q.peakInFlight,
		Completed:    q.completed.Load(),
		Failed:       q.failed.Load(),
	}
}

// scheduleLocked must be called with q.mu held. It returns drain waiters
// detached from the queue that must be fired after unlocking.
func (q *Queue) scheduleLocked() []drainWaiter {
	if len(q.pending) == 0 && q.inFlight == 0 {
		q.metrics.SetPending(0)
		q.metrics.SetInFlight(0)
		q.metrics.IncDrains()
		waiters := q.drainWaiters
		q.drainWaiters = nil
		return waiters
	}
	for q.inFlight < q.limit && len(q.pending) > 0 {
		it := q.popLocked()
		q.inFlight++
		if q.inFlight > q.peakInFlight {
			q.peakInFlight = q.inFlight
		}
		go q.dispatch(it)
	}
	q.metrics.SetPending(len(q.pending))
	q.metrics.SetInFlight(q.inFlight)
	return nil
}

func (q *Queue) popLocked() *item {
	var it *item
	last := len(q.pending) - 1
	if q.order == OrderLIFO {
		it = q.pending[last]
		q.pending[last] = nil
		q.pending = q.pending[:last]
		return it
	}
	it = q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return it
}

func (q *Queue) dispatch(it *item) {
	startTime := time.Now()
	q.metrics.ObserveWaitDuration(startTime.Sub(it.enqueuedAt))

	logger := q.logger.With(log.String("queue_item_id", it.id), log.String("target", it.target()))

	var resp *http.Response
	err := it.buildErr
	if err == nil {
		logger.Debug("queue item dispatched")
		resp, err = q.do(it.req)
	}
	elapsed := time.Since(startTime)

	if err != nil {
		q.failed.Inc()
		q.metrics.ObserveCompletion(ResultError, elapsed)
		logger.Warn("queue item failed", log.Error(err), log.DurationIn(elapsed, time.Millisecond))
	} else {
		q.completed.Inc()
		q.metrics.ObserveCompletion(ResultOK, elapsed)
		logger.Debug("queue item completed", log.Int("status", resp.StatusCode), log.DurationIn(elapsed, time.Millisecond))
	}

	// The handle is resolved before the slot is released,
	// so a drain is never observed ahead of any resolution.
	it.handle.resolve(resp, err)

	q.mu.Lock()
	q.inFlight--
	waiters := q.scheduleLocked()
	q.mu.Unlock()

	q.fireDrainWaiters(waiters)
}

func (q *Queue) do(req *http.Request) (resp *http.Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			resp, err = nil, &TransportPanicError{Value: p}
		}
	}()
	resp, err = q.doer.Do(req)
	if err == nil && resp == nil {
		err = fmt.Errorf("transport returned neither response nor error")
	}
	return resp, err
}

func (q *Queue) fireDrainWaiters(waiters []drainWaiter) {
	for _, w := range waiters {
		q.callDrainWaiter(w.cb)
	}
}

func (q *Queue) callDrainWaiter(cb func()) {
	defer func() {
		if p := recover(); p != nil {
			q.logger.Errorf("drain callback panicked: %v", p)
		}
	}()
	cb()
}
