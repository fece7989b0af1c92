/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetchqueue

import (
	"fmt"
	"strings"

	"github.com/roadnet/roadkit/config"
)

const cfgDefaultKeyPrefix = "queue"

const (
	cfgKeyConcurrencyLimit = "concurrencyLimit"
	cfgKeyOrder            = "order"
)

var availableOrders = []string{string(OrderFIFO), string(OrderLIFO)}

// Config represents a set of configuration parameters for the queue.
type Config struct {
	ConcurrencyLimit int   `mapstructure:"concurrencyLimit" yaml:"concurrencyLimit" json:"concurrencyLimit"`
	Order            Order `mapstructure:"order" yaml:"order" json:"order"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config that is read under the "queue" key.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
}

// NewConfigWithKeyPrefix creates a new instance of the Config read under the given key.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix, ConcurrencyLimit: DefaultConcurrencyLimit, Order: OrderFIFO}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the queue in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyConcurrencyLimit, DefaultConcurrencyLimit)
	dp.SetDefault(cfgKeyOrder, string(OrderFIFO))
}

// Set sets queue configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	limit, err := dp.GetInt(cfgKeyConcurrencyLimit)
	if err != nil {
		return err
	}
	if limit <= 0 {
		return dp.WrapKeyErr(cfgKeyConcurrencyLimit, fmt.Errorf("%w: must be positive", ErrInvalidConfiguration))
	}
	c.ConcurrencyLimit = limit

	orderStr, err := dp.GetStringFromSet(cfgKeyOrder, availableOrders, true)
	if err != nil {
		return err
	}
	c.Order = Order(strings.ToLower(orderStr))

	return nil
}
