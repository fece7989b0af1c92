/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package roadquery

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/roadnet/roadkit/config"
	"github.com/roadnet/roadkit/fetchqueue"
	"github.com/roadnet/roadkit/httpclient"
	"github.com/roadnet/roadkit/lookupcache"
)

const cfgDefaultKeyPrefix = "client"

// Default configuration values.
const (
	DefaultBatchPath        = "/batch/"
	DefaultMaxBatchBodySize = config.ByteSize(1024 * 1024)
)

const (
	cfgKeyBaseURL          = "baseURL"
	cfgKeyBatchPath        = "batchPath"
	cfgKeyMaxBatchBodySize = "maxBatchBodySize"
)

// Config is the configuration of the batch lookup client.
// Its own keys live under "client" by default. Queue, HTTP and Cache are loaded under their own prefixes
// ("queue", "client.http" and "client.cache"), so one YAML document configures the whole client.
type Config struct {
	BaseURL          string          `mapstructure:"baseURL" yaml:"baseURL" json:"baseURL"`
	BatchPath        string          `mapstructure:"batchPath" yaml:"batchPath" json:"batchPath"`
	MaxBatchBodySize config.ByteSize `mapstructure:"maxBatchBodySize" yaml:"maxBatchBodySize" json:"maxBatchBodySize"`

	Queue *fetchqueue.Config  `mapstructure:"-" yaml:"-" json:"-"`
	HTTP  *httpclient.Config  `mapstructure:"-" yaml:"-" json:"-"`
	Cache *lookupcache.Config `mapstructure:"-" yaml:"-" json:"-"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)

// NewConfig creates a new Config with the default key prefixes.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new Config which own keys are read under keyPrefix.
// The queue keys are read under "<keyPrefix>.queue" then.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	queueCfg := fetchqueue.NewConfig()
	if keyPrefix != cfgDefaultKeyPrefix {
		queueCfg = fetchqueue.NewConfigWithKeyPrefix(keyPrefix + ".queue")
	}
	return &Config{
		keyPrefix: keyPrefix,
		Queue:     queueCfg,
		HTTP:      httpclient.NewConfigWithKeyPrefix(keyPrefix + ".http"),
		Cache:     lookupcache.NewConfigWithKeyPrefix(keyPrefix + ".cache"),
	}
}

// NewDefaultConfig creates a new Config with default values and the given base URL.
func NewDefaultConfig(baseURL string) *Config {
	return &Config{
		keyPrefix:        cfgDefaultKeyPrefix,
		BaseURL:          baseURL,
		BatchPath:        DefaultBatchPath,
		MaxBatchBodySize: DefaultMaxBatchBodySize,
		Queue:            fetchqueue.NewDefaultConfig(),
		HTTP:             httpclient.NewDefaultConfig(),
		Cache:            lookupcache.NewDefaultConfig(),
	}
}

// EnvVarsPrefix is the prefix of environment variables that override loaded documents,
// e.g. ROADKIT_CLIENT_BASEURL or ROADKIT_QUEUE_CONCURRENCYLIMIT.
const EnvVarsPrefix = "ROADKIT"

// LoadConfigFromFile reads the client configuration from a YAML or JSON file.
// Values from environment variables prefixed with EnvVarsPrefix take precedence.
func LoadConfigFromFile(path string, dataType config.DataType) (*Config, error) {
	cfg := NewConfig()
	if err := config.NewDefaultLoader(EnvVarsPrefix).LoadFromFile(path, dataType, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromReader is like LoadConfigFromFile but reads the document from r.
func LoadConfigFromReader(r io.Reader, dataType config.DataType) (*Config, error) {
	cfg := NewConfig()
	if err := config.NewDefaultLoader(EnvVarsPrefix).LoadFromReader(r, dataType, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	own := config.NewKeyPrefixedDataProvider(dp, c.keyPrefix)
	own.SetDefault(cfgKeyBatchPath, DefaultBatchPath)
	own.SetDefault(cfgKeyMaxBatchBodySize, DefaultMaxBatchBodySize)
	c.Queue.SetProviderDefaults(config.DataProviderFor(dp, c.Queue))
	c.HTTP.SetProviderDefaults(config.DataProviderFor(dp, c.HTTP))
	c.Cache.SetProviderDefaults(config.DataProviderFor(dp, c.Cache))
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	own := config.NewKeyPrefixedDataProvider(dp, c.keyPrefix)

	var err error
	if c.BaseURL, err = own.GetString(cfgKeyBaseURL); err != nil {
		return err
	}
	if _, err = parseBaseURL(c.BaseURL); err != nil {
		return own.WrapKeyErr(cfgKeyBaseURL, err)
	}
	if c.BatchPath, err = own.GetString(cfgKeyBatchPath); err != nil {
		return err
	}
	if c.MaxBatchBodySize, err = own.GetByteSize(cfgKeyMaxBatchBodySize); err != nil {
		return err
	}
	if c.MaxBatchBodySize == 0 {
		return own.WrapKeyErr(cfgKeyMaxBatchBodySize, fmt.Errorf("%w: must be positive", ErrInvalidConfiguration))
	}

	if err = c.Queue.Set(config.DataProviderFor(dp, c.Queue)); err != nil {
		return err
	}
	if err = c.HTTP.Set(config.DataProviderFor(dp, c.HTTP)); err != nil {
		return err
	}
	return c.Cache.Set(config.DataProviderFor(dp, c.Cache))
}

func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfiguration)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%w: base URL must be an absolute http(s) URL", ErrInvalidConfiguration)
	}
	return u, nil
}

func (c *Config) batchURL() (string, error) {
	u, err := parseBaseURL(c.BaseURL)
	if err != nil {
		return "", err
	}
	batchPath := c.BatchPath
	if batchPath == "" {
		batchPath = DefaultBatchPath
	}
	return strings.TrimRight(u.String(), "/") + "/" + strings.TrimLeft(batchPath, "/"), nil
}
