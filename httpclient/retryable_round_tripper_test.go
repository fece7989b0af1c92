/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roadnet/roadkit/log/logtest"
	"github.com/roadnet/roadkit/retry"
)

type receivedRequest struct {
	method       string
	body         string
	retryAttempt string
}

type retryTestServer struct {
	*httptest.Server
	mu        sync.Mutex
	received  []receivedRequest
	respCodes []int
	header    http.Header
}

func newRetryTestServer(t *testing.T, respCodes ...int) *retryTestServer {
	t.Helper()
	srv := &retryTestServer{respCodes: respCodes}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		srv.mu.Lock()
		srv.received = append(srv.received, receivedRequest{
			method:       r.Method,
			body:         string(body),
			retryAttempt: r.Header.Get(RetryAttemptNumberHeader),
		})
		code := http.StatusOK
		if len(srv.respCodes) > 0 {
			code, srv.respCodes = srv.respCodes[0], srv.respCodes[1:]
		}
		for k, v := range srv.header {
			rw.Header()[k] = v
		}
		srv.mu.Unlock()

		rw.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *retryTestServer) Received() []receivedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]receivedRequest(nil), s.received...)
}

func newTestRetryableClient(t *testing.T, opts RetryableRoundTripperOpts) *http.Client {
	t.Helper()
	if opts.BackoffPolicy == nil {
		opts.BackoffPolicy = retry.NewConstantBackoffPolicy(time.Millisecond, 0)
	}
	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, opts)
	require.NoError(t, err)
	return &http.Client{Transport: rt}
}

func TestNewRetryableRoundTripper(t *testing.T) {
	_, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{MaxRetryAttempts: -2})
	require.Error(t, err)

	rt, err := NewRetryableRoundTripper(http.DefaultTransport)
	require.NoError(t, err)
	require.Equal(t, DefaultMaxRetryAttempts, rt.MaxRetryAttempts)
	require.Equal(t, DefaultBackoffPolicy, rt.BackoffPolicy)
}

func TestRetryableRoundTripper_RoundTrip(t *testing.T) {
	t.Run("GET is retried until success", func(t *testing.T) {
		srv := newRetryTestServer(t, http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusOK)
		client := newTestRetryableClient(t, RetryableRoundTripperOpts{})

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)

		received := srv.Received()
		require.Len(t, received, 3)
		require.Equal(t, "", received[0].retryAttempt)
		require.Equal(t, "1", received[1].retryAttempt)
		require.Equal(t, "2", received[2].retryAttempt)
	})

	t.Run("max attempts", func(t *testing.T) {
		srv := newRetryTestServer(t, 500, 500, 500, 500, 500)
		logger := logtest.NewRecorder()
		client := newTestRetryableClient(t, RetryableRoundTripperOpts{MaxRetryAttempts: 2, Logger: logger})

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		require.Len(t, srv.Received(), 3)

		_, found := logger.FindEntry("max retry attempts exceeded (2), 3 request(s) done")
		require.True(t, found)
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		srv := newRetryTestServer(t, http.StatusBadRequest)
		client := newTestRetryableClient(t, RetryableRoundTripperOpts{})
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Len(t, srv.Received(), 1)
	})

	t.Run("POST is retried only with idempotent hint and body is resent", func(t *testing.T) {
		srv := newRetryTestServer(t, 503, 503, 503)
		client := newTestRetryableClient(t, RetryableRoundTripperOpts{})

		resp, err := client.Post(srv.URL, "application/octet-stream", strings.NewReader("batch"))
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.Len(t, srv.Received(), 1)

		ctx := NewContextWithIdempotentHint(context.Background(), true)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL, bytes.NewReader([]byte("batch")))
		require.NoError(t, err)
		resp, err = client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)

		received := srv.Received()[1:]
		require.Len(t, received, 3)
		for _, r := range received {
			require.Equal(t, http.MethodPost, r.method)
			require.Equal(t, "batch", r.body)
		}
	})

	t.Run("body without GetBody is buffered", func(t *testing.T) {
		srv := newRetryTestServer(t, 502)
		client := newTestRetryableClient(t, RetryableRoundTripperOpts{})
		ctx := NewContextWithIdempotentHint(context.Background(), true)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL, io.NopCloser(strings.NewReader("payload")))
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		received := srv.Received()
		require.Len(t, received, 2)
		require.Equal(t, "payload", received[0].body)
		require.Equal(t, "payload", received[1].body)
	})

	t.Run("Retry-After is respected", func(t *testing.T) {
		srv := newRetryTestServer(t, http.StatusTooManyRequests)
		srv.header = http.Header{"Retry-After": {"1"}}
		client := newTestRetryableClient(t, RetryableRoundTripperOpts{})

		startedAt := time.Now()
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.GreaterOrEqual(t, time.Since(startedAt), time.Second)
		require.Len(t, srv.Received(), 2)
	})

	t.Run("context canceled while waiting", func(t *testing.T) {
		srv := newRetryTestServer(t, 500, 500)
		client := newTestRetryableClient(t, RetryableRoundTripperOpts{
			BackoffPolicy: retry.NewConstantBackoffPolicy(time.Hour, 0),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		require.Len(t, srv.Received(), 1)
	})
}

func TestCheckErrorIsTemporary(t *testing.T) {
	require.True(t, CheckErrorIsTemporary(io.EOF))
	require.True(t, CheckErrorIsTemporary(io.ErrUnexpectedEOF))
	require.False(t, CheckErrorIsTemporary(context.Canceled))
}
