/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lookupcache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roadnet/roadkit/batch"
	"github.com/roadnet/roadkit/testutil"
)

func road(name string) batch.Record {
	return batch.Record{Road: name, SLKFrom: 0, SLKTo: 1, Carriageway: batch.CarriagewayLRS}
}

func result(name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"road":%q}`, name))
}

func TestNew(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = NewWithOpts(10, Opts{TTL: -time.Second})
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	cache, err := NewFromConfig(NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.Equal(t, DefaultMaxEntries, cache.maxEntries)
	require.Equal(t, DefaultTTL, cache.ttl)
}

func TestCache(t *testing.T) {
	metrics := NewPrometheusMetrics()
	cache, err := NewWithOpts(2, Opts{MetricsCollector: metrics})
	require.NoError(t, err)

	_, found := cache.Get(road("H001"))
	require.False(t, found)

	require.True(t, cache.Add(road("H001"), result("H001")))
	require.True(t, cache.Add(road("H002"), result("H002")))
	require.Equal(t, 2, cache.Len())

	got, found := cache.Get(road("H001"))
	require.True(t, found)
	require.JSONEq(t, `{"road":"H001"}`, string(got))

	// H002 is the least recently used one now.
	require.True(t, cache.Add(road("H003"), result("H003")))
	require.Equal(t, 2, cache.Len())
	_, found = cache.Get(road("H002"))
	require.False(t, found)
	_, found = cache.Get(road("H003"))
	require.True(t, found)

	other := road("H001")
	other.Carriageway = batch.CarriagewayL
	_, found = cache.Get(other)
	require.False(t, found)

	testutil.AssertGaugeValue(t, metrics.EntriesAmount, 2)
	testutil.AssertSamplesCountInCounter(t, metrics.HitsTotal, 2)
	testutil.AssertSamplesCountInCounter(t, metrics.MissesTotal, 3)
	testutil.AssertSamplesCountInCounter(t, metrics.EvictionsTotal, 1)

	require.True(t, cache.Remove(road("H003")))
	require.False(t, cache.Remove(road("H003")))
	testutil.AssertGaugeValue(t, metrics.EntriesAmount, 1)

	cache.Purge()
	require.Equal(t, 0, cache.Len())
	testutil.AssertGaugeValue(t, metrics.EntriesAmount, 0)
}

func TestCache_Add(t *testing.T) {
	cache, err := New(10)
	require.NoError(t, err)

	t.Run("null results are not stored", func(t *testing.T) {
		require.False(t, cache.Add(road("X001"), json.RawMessage("null")))
		require.False(t, cache.Add(road("X002"), json.RawMessage(" null\n")))
		require.False(t, cache.Add(road("X003"), nil))
		require.Equal(t, 0, cache.Len())
	})

	t.Run("value is copied", func(t *testing.T) {
		value := result("H001")
		require.True(t, cache.Add(road("H001"), value))
		value[2] = 'X'
		got, found := cache.Get(road("H001"))
		require.True(t, found)
		require.JSONEq(t, `{"road":"H001"}`, string(got))
	})

	t.Run("replace", func(t *testing.T) {
		require.True(t, cache.Add(road("H002"), result("old")))
		require.True(t, cache.Add(road("H002"), result("new")))
		got, found := cache.Get(road("H002"))
		require.True(t, found)
		require.JSONEq(t, `{"road":"new"}`, string(got))
	})
}

func TestCache_TTL(t *testing.T) {
	metrics := NewPrometheusMetrics()
	cache, err := NewWithOpts(10, Opts{TTL: 20 * time.Millisecond, MetricsCollector: metrics})
	require.NoError(t, err)

	require.True(t, cache.Add(road("H001"), result("H001")))
	_, found := cache.Get(road("H001"))
	require.True(t, found)

	time.Sleep(40 * time.Millisecond)
	_, found = cache.Get(road("H001"))
	require.False(t, found)
	require.Equal(t, 0, cache.Len())
	testutil.AssertSamplesCountInCounter(t, metrics.MissesTotal, 1)
}

func TestCache_RunPeriodicCleanup(t *testing.T) {
	cache, err := NewWithOpts(10, Opts{TTL: 10 * time.Millisecond})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.True(t, cache.Add(road(fmt.Sprintf("H%03d", i)), result("H")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cache.RunPeriodicCleanup(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return cache.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
