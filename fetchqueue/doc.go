/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package fetchqueue provides a queue that caps how many outbound HTTP requests are in flight at once.
//
// Callers submit requests with Queue.Submit and get a Handle back immediately; the request is kept
// pending until one of the concurrency slots is free. Each handle resolves exactly once, with the
// response or with the transport error, and a failure of one request never affects the others.
// Queue.OnDrain and Queue.WaitDrain notify when no request is pending and none is in flight.
//
// Pending requests are dispatched in FIFO order by default; OrderLIFO dispatches the most recently
// submitted request first. Drain callbacks registered while the queue is idle wait for the next drain,
// they are not invoked immediately.
//
// The queue itself neither retries nor times out requests: timeouts belong to the request context or
// to the Doer (see package httpclient), and retries are done by resubmitting.
package fetchqueue
