/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testClientConfig struct {
	BaseURL string
	Timeout time.Duration
	MaxBody ByteSize
}

func (c *testClientConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("baseURL", "http://localhost:8080")
	dp.SetDefault("timeout", "10s")
}

func (c *testClientConfig) Set(dp DataProvider) error {
	var err error
	if c.BaseURL, err = dp.GetString("baseURL"); err != nil {
		return err
	}
	if c.Timeout, err = dp.GetDuration("timeout"); err != nil {
		return err
	}
	if c.MaxBody, err = dp.GetByteSize("maxBody"); err != nil {
		return err
	}
	return nil
}

type testQueueConfig struct {
	Limit int
	Order string
}

func (c *testQueueConfig) KeyPrefix() string {
	return "queue"
}

func (c *testQueueConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("limit", 30)
}

func (c *testQueueConfig) Set(dp DataProvider) error {
	var err error
	if c.Limit, err = dp.GetInt("limit"); err != nil {
		return err
	}
	if c.Limit <= 0 {
		return dp.WrapKeyErr("limit", errors.New("must be positive"))
	}
	if c.Order, err = dp.GetStringFromSet("order", []string{"", "fifo", "lifo"}, true); err != nil {
		return err
	}
	return nil
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clientCfg, queueCfg := &testClientConfig{}, &testQueueConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, clientCfg, queueCfg)
		require.NoError(t, err)
		require.Equal(t, "http://localhost:8080", clientCfg.BaseURL)
		require.Equal(t, 10*time.Second, clientCfg.Timeout)
		require.Equal(t, ByteSize(0), clientCfg.MaxBody)
		require.Equal(t, 30, queueCfg.Limit)
		require.Equal(t, "", queueCfg.Order)
	})

	t.Run("yaml with key prefix", func(t *testing.T) {
		cfgData := `
baseURL: http://roads.example
timeout: 1m
maxBody: 2M
queue:
  limit: 200
  order: LIFO
`
		clientCfg, queueCfg := &testClientConfig{}, &testQueueConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(cfgData), DataTypeYAML, clientCfg, queueCfg)
		require.NoError(t, err)
		require.Equal(t, "http://roads.example", clientCfg.BaseURL)
		require.Equal(t, time.Minute, clientCfg.Timeout)
		require.Equal(t, ByteSize(2*1024*1024), clientCfg.MaxBody)
		require.Equal(t, 200, queueCfg.Limit)
		require.Equal(t, "LIFO", queueCfg.Order)
	})

	t.Run("validation error contains prefixed key", func(t *testing.T) {
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"queue":{"limit":0}}`), DataTypeJSON, &testQueueConfig{})
		require.EqualError(t, err, "queue.limit: must be positive")
	})

	t.Run("unknown value from set", func(t *testing.T) {
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"queue":{"order":"random"}}`), DataTypeJSON, &testQueueConfig{})
		require.ErrorContains(t, err, "queue.order: unknown value \"random\"")
	})
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"queue":{"limit":5}}`), 0o600))

	queueCfg := &testQueueConfig{}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(path, DataTypeJSON, queueCfg))
	require.Equal(t, 5, queueCfg.Limit)

	err := NewLoader(NewViperAdapter()).LoadFromFile(filepath.Join(t.TempDir(), "missing.json"), DataTypeJSON, queueCfg)
	require.Error(t, err)
}

func TestNewDefaultLoader_EnvVars(t *testing.T) {
	t.Setenv("ROADKIT_QUEUE_LIMIT", "7")

	queueCfg := &testQueueConfig{}
	err := NewDefaultLoader("roadkit").LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, queueCfg)
	require.NoError(t, err)
	require.Equal(t, 7, queueCfg.Limit)
}
