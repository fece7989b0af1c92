/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lookupcache

import (
	"fmt"
	"time"

	"github.com/roadnet/roadkit/config"
)

const cfgDefaultKeyPrefix = "client.cache"

// Default configuration values.
const (
	DefaultMaxEntries = 10000
	DefaultTTL        = 10 * time.Minute
)

const (
	cfgKeyEnabled    = "enabled"
	cfgKeyMaxEntries = "maxEntries"
	cfgKeyTTL        = "ttl"
)

// Config is the configuration of the lookup cache.
type Config struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MaxEntries int           `mapstructure:"maxEntries" yaml:"maxEntries" json:"maxEntries"`
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new Config read under the "client.cache" key.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new Config read under keyPrefix.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new disabled Config with default values.
func NewDefaultConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix, MaxEntries: DefaultMaxEntries, TTL: DefaultTTL}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxEntries, DefaultMaxEntries)
	dp.SetDefault(cfgKeyTTL, DefaultTTL)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}
	if c.MaxEntries, err = dp.GetInt(cfgKeyMaxEntries); err != nil {
		return err
	}
	if c.MaxEntries <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxEntries, fmt.Errorf("%w: must be positive", ErrInvalidConfiguration))
	}
	if c.TTL, err = dp.GetDuration(cfgKeyTTL); err != nil {
		return err
	}
	if c.TTL < 0 {
		return dp.WrapKeyErr(cfgKeyTTL, fmt.Errorf("%w: must not be negative", ErrInvalidConfiguration))
	}
	return nil
}
