/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package roadquery is a client of the road-network batch lookup service.
// Records are encoded with package batch, sent as one POST per batch through a bounded fetch queue,
// and answered with a JSON array that holds one entry per record.
package roadquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/roadnet/roadkit/batch"
	"github.com/roadnet/roadkit/fetchqueue"
	"github.com/roadnet/roadkit/httpclient"
	"github.com/roadnet/roadkit/log"
	"github.com/roadnet/roadkit/lookupcache"
	"github.com/roadnet/roadkit/retry"
)

// RequestTypeBatchLookup is the request type of batch lookups in transport logs and metrics.
const RequestTypeBatchLookup = "batch-lookup"

// ContentTypeBatch is the content type of an encoded batch.
const ContentTypeBatch = "application/octet-stream"

// Opts represents options for NewClient.
type Opts struct {
	// Doer replaces the HTTP client built from Config.HTTP.
	Doer fetchqueue.Doer

	// HTTPClientOpts is passed to httpclient.NewWithOpts. Its Logger defaults to Logger.
	HTTPClientOpts httpclient.Opts

	// Logger is used by the client and its queue. Disabled logger by default.
	Logger log.FieldLogger

	// QueueMetricsCollector collects the fetch queue metrics.
	QueueMetricsCollector fetchqueue.MetricsCollector

	// CacheMetricsCollector collects the lookup cache metrics. Used only when the cache is enabled.
	CacheMetricsCollector lookupcache.MetricsCollector
}

// Client sends batch lookups to the lookup service.
type Client struct {
	queue       *fetchqueue.Queue
	batchURL    string
	maxBodySize int
	cache       *lookupcache.Cache
	logger      log.FieldLogger
}

// NewClient creates a new Client.
func NewClient(cfg *Config, opts Opts) (*Client, error) {
	batchURL, err := cfg.batchURL()
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}

	doer := opts.Doer
	if doer == nil {
		httpOpts := opts.HTTPClientOpts
		if httpOpts.Logger == nil {
			httpOpts.Logger = opts.Logger
		}
		if httpOpts.RequestType == "" {
			httpOpts.RequestType = RequestTypeBatchLookup
		}
		httpCfg := cfg.HTTP
		if httpCfg == nil {
			httpCfg = httpclient.NewDefaultConfig()
		}
		if doer, err = httpclient.NewWithOpts(httpCfg, httpOpts); err != nil {
			return nil, fmt.Errorf("create http client: %w", err)
		}
	}

	queueCfg := cfg.Queue
	if queueCfg == nil {
		queueCfg = fetchqueue.NewDefaultConfig()
	}
	queue, err := fetchqueue.NewFromConfig(queueCfg, fetchqueue.Opts{
		Doer:             doer,
		Logger:           opts.Logger,
		MetricsCollector: opts.QueueMetricsCollector,
	})
	if err != nil {
		return nil, fmt.Errorf("create fetch queue: %w", err)
	}

	var cache *lookupcache.Cache
	if cfg.Cache != nil && cfg.Cache.Enabled {
		if cache, err = lookupcache.NewFromConfig(cfg.Cache, opts.CacheMetricsCollector); err != nil {
			return nil, fmt.Errorf("create lookup cache: %w", err)
		}
	}

	return &Client{
		queue:       queue,
		batchURL:    batchURL,
		maxBodySize: int(cfg.MaxBatchBodySize),
		cache:       cache,
		logger:      opts.Logger,
	}, nil
}

// LookupBatch encodes records into one batch and submits it to the queue.
// An error is returned only when the batch cannot be encoded; transport and service failures
// resolve the returned handle. Use DecodeBatchResponse on the resolved response.
func (c *Client) LookupBatch(ctx context.Context, records []batch.Record) (*fetchqueue.Handle, error) {
	body, err := c.encode(records)
	if err != nil {
		return nil, err
	}
	return c.submit(ctx, body), nil
}

// Lookup submits one batch and waits for its entries, one per record in the same order.
// When the cache is enabled, only records without a cached result are sent.
func (c *Client) Lookup(ctx context.Context, records []batch.Record) ([]json.RawMessage, error) {
	return c.lookupCached(ctx, records, c.lookup)
}

// LookupBatchWithRetry is Lookup that resubmits the batch through the queue according to policy
// while the failure is temporary (see IsTemporary). Each attempt takes a new queue slot.
func (c *Client) LookupBatchWithRetry(
	ctx context.Context, records []batch.Record, policy retry.Policy,
) ([]json.RawMessage, error) {
	return c.lookupCached(ctx, records, func(ctx context.Context, body []byte) ([]json.RawMessage, error) {
		var entries []json.RawMessage
		attempt := 0
		notify := func(err error, wait time.Duration) {
			c.logger.Warn("batch lookup attempt failed, retrying",
				log.Int("attempt", attempt), log.Int("batch_size", len(body)),
				log.Duration("wait", wait), log.Error(err))
		}
		err := retry.DoWithRetry(ctx, policy, IsTemporary, notify, func(ctx context.Context) error {
			attempt++
			var lookupErr error
			entries, lookupErr = c.lookup(ctx, body)
			return lookupErr
		})
		return entries, err
	})
}

// Cache returns the lookup cache, nil if it is disabled.
// Expired entries are dropped on access; run Cache().RunPeriodicCleanup to drop them eagerly.
func (c *Client) Cache() *lookupcache.Cache {
	return c.cache
}

type lookupFunc func(ctx context.Context, body []byte) ([]json.RawMessage, error)

func (c *Client) lookupCached(ctx context.Context, records []batch.Record, lookup lookupFunc) ([]json.RawMessage, error) {
	if len(records) == 0 {
		_, err := c.encode(records)
		return nil, err
	}

	entries := make([]json.RawMessage, len(records))
	missing, missingIdx := records, []int(nil)
	if c.cache != nil {
		missing = make([]batch.Record, 0, len(records))
		for i := range records {
			if entry, ok := c.cache.Get(records[i]); ok {
				entries[i] = entry
				continue
			}
			missing = append(missing, records[i])
			missingIdx = append(missingIdx, i)
		}
		if len(missing) == 0 {
			return entries, nil
		}
	}

	body, err := c.encode(missing)
	if err != nil {
		return nil, err
	}
	got, err := lookup(ctx, body)
	if err != nil {
		return nil, err
	}
	if len(got) != len(missing) {
		return nil, fmt.Errorf("%w: %d entries for %d records", ErrMalformedResponse, len(got), len(missing))
	}
	if c.cache == nil {
		return got, nil
	}
	for j, i := range missingIdx {
		entries[i] = got[j]
		c.cache.Add(missing[j], got[j])
	}
	return entries, nil
}

func (c *Client) submit(ctx context.Context, body []byte) *fetchqueue.Handle {
	requestID := httpclient.GetRequestIDFromContext(ctx)
	if !httpclient.IsValidRequestID(requestID) {
		requestID = httpclient.NewRequestID()
	}
	header := make(http.Header, 2)
	header.Set("Content-Type", ContentTypeBatch)
	header.Set(httpclient.RequestIDHeader, requestID)

	ctx = httpclient.NewContextWithIdempotentHint(ctx, true)
	ctx = httpclient.NewContextWithRequestType(ctx, RequestTypeBatchLookup)
	return c.queue.Submit(ctx, c.batchURL, fetchqueue.RequestOptions{
		Method: http.MethodPost,
		Header: header,
		Body:   body,
	})
}

func (c *Client) lookup(ctx context.Context, body []byte) ([]json.RawMessage, error) {
	handle := c.submit(ctx, body)
	resp, err := handle.Wait(ctx)
	if err != nil {
		go closeWhenResolved(handle)
		return nil, err
	}
	return DecodeBatchResponse(resp)
}

// closeWhenResolved releases the response of an item nobody waits for anymore.
func closeWhenResolved(handle *fetchqueue.Handle) {
	<-handle.Done()
	if resp, err := handle.Wait(context.Background()); err == nil && resp != nil {
		_ = resp.Body.Close()
	}
}

// OnDrain registers cb to be called once when the queue next becomes idle.
func (c *Client) OnDrain(cb func()) {
	c.queue.OnDrain(cb)
}

// WaitDrain blocks until the queue next becomes idle or ctx is done.
func (c *Client) WaitDrain(ctx context.Context) error {
	return c.queue.WaitDrain(ctx)
}

// Stats returns a snapshot of the queue counters.
func (c *Client) Stats() fetchqueue.Stats {
	return c.queue.Stats()
}

func (c *Client) encode(records []batch.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty batch", batch.ErrInvalidArgument)
	}
	b := batch.NewBuilderWithMaxSize(c.maxBodySize)
	for i := range records {
		if err := b.AddRecord(records[i]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return b.Bytes(), nil
}

// IsTemporary reports whether a failed lookup may succeed if the batch is submitted again.
func IsTemporary(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, batch.ErrInvalidArgument) || errors.Is(err, batch.ErrBatchTooLarge) ||
		errors.Is(err, fetchqueue.ErrInvalidRequest) || errors.Is(err, ErrRequestIDMismatch) ||
		errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.Temporary()
	}
	return true
}
