/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"errors"
	"strings"
	"time"

	"github.com/roadnet/roadkit/config"
	"github.com/roadnet/roadkit/retry"
)

const cfgDefaultKeyPrefix = "client.http"

// DefaultClientWaitTimeout is a default timeout for a client to wait for a request.
const DefaultClientWaitTimeout = 10 * time.Second

// Retry policy strategies.
const (
	RetryPolicyExponential = "exponential"
	RetryPolicyConstant    = "constant"
)

const (
	cfgKeyTimeout                                 = "timeout"
	cfgKeyRetriesEnabled                          = "retries.enabled"
	cfgKeyRetriesMaxAttempts                      = "retries.maxAttempts"
	cfgKeyRetriesPolicyStrategy                   = "retries.policy.strategy"
	cfgKeyRetriesPolicyExponentialInitialInterval = "retries.policy.exponentialBackoffInitialInterval"
	cfgKeyRetriesPolicyExponentialMultiplier      = "retries.policy.exponentialBackoffMultiplier"
	cfgKeyRetriesPolicyConstantInterval           = "retries.policy.constantBackoffInterval"
	cfgKeyRateLimitsEnabled                       = "rateLimits.enabled"
	cfgKeyRateLimitsLimit                         = "rateLimits.limit"
	cfgKeyRateLimitsBurst                         = "rateLimits.burst"
	cfgKeyRateLimitsWaitTimeout                   = "rateLimits.waitTimeout"
	cfgKeyLogEnabled                              = "log.enabled"
	cfgKeyLogMode                                 = "log.mode"
	cfgKeyLogSlowRequestThreshold                 = "log.slowRequestThreshold"
	cfgKeyMetricsEnabled                          = "metrics.enabled"
)

var (
	availableRetryStrategies = []string{RetryPolicyExponential, RetryPolicyConstant}
	availableLoggingModes    = []string{string(LoggingModeNone), string(LoggingModeAll), string(LoggingModeFailed)}
)

// Config represents options for HTTP client configuration.
type Config struct {
	// Timeout is the maximum time for a single request including retries and reading the response.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`

	Retries    RetriesConfig   `mapstructure:"retries" yaml:"retries" json:"retries"`
	RateLimits RateLimitConfig `mapstructure:"rateLimits" yaml:"rateLimits" json:"rateLimits"`
	Log        LogConfig       `mapstructure:"log" yaml:"log" json:"log"`
	Metrics    MetricsConfig   `mapstructure:"metrics" yaml:"metrics" json:"metrics"`

	keyPrefix string
}

// RetriesConfig represents configuration options for HTTP client retries policy.
type RetriesConfig struct {
	Enabled     bool         `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MaxAttempts int          `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`
	Policy      PolicyConfig `mapstructure:"policy" yaml:"policy" json:"policy"`
}

// PolicyConfig represents configuration options for policy retry.
type PolicyConfig struct {
	Strategy                          string        `mapstructure:"strategy" yaml:"strategy" json:"strategy"`
	ExponentialBackoffInitialInterval time.Duration `mapstructure:"exponentialBackoffInitialInterval" yaml:"exponentialBackoffInitialInterval" json:"exponentialBackoffInitialInterval"` //nolint:lll
	ExponentialBackoffMultiplier      float64       `mapstructure:"exponentialBackoffMultiplier" yaml:"exponentialBackoffMultiplier" json:"exponentialBackoffMultiplier"`
	ConstantBackoffInterval           time.Duration `mapstructure:"constantBackoffInterval" yaml:"constantBackoffInterval" json:"constantBackoffInterval"`
}

// RateLimitConfig represents configuration options for HTTP client rate limits.
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Limit       int           `mapstructure:"limit" yaml:"limit" json:"limit"`
	Burst       int           `mapstructure:"burst" yaml:"burst" json:"burst"`
	WaitTimeout time.Duration `mapstructure:"waitTimeout" yaml:"waitTimeout" json:"waitTimeout"`
}

// LogConfig represents configuration options for HTTP client logs.
type LogConfig struct {
	Enabled              bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Mode                 LoggingMode   `mapstructure:"mode" yaml:"mode" json:"mode"`
	SlowRequestThreshold time.Duration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"`
}

// MetricsConfig represents configuration options for HTTP client metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config that is read under the "client.http" key.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		keyPrefix: cfgDefaultKeyPrefix,
		Timeout:   DefaultClientWaitTimeout,
		Retries: RetriesConfig{
			MaxAttempts: DefaultMaxRetryAttempts,
			Policy: PolicyConfig{
				Strategy:                          RetryPolicyExponential,
				ExponentialBackoffInitialInterval: DefaultExponentialBackoffInitialInterval,
				ExponentialBackoffMultiplier:      DefaultExponentialBackoffMultiplier,
				ConstantBackoffInterval:           DefaultExponentialBackoffInitialInterval,
			},
		},
		RateLimits: RateLimitConfig{Burst: DefaultRateLimitingBurst, WaitTimeout: DefaultRateLimitingWaitTimeout},
		Log:        LogConfig{Mode: LoggingModeFailed},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetKeyPrefix changes the key prefix (used when the config is embedded into another one).
func (c *Config) SetKeyPrefix(keyPrefix string) {
	c.keyPrefix = keyPrefix
}

// SetProviderDefaults sets default configuration values for HTTP client in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultClientWaitTimeout)
	dp.SetDefault(cfgKeyRetriesMaxAttempts, DefaultMaxRetryAttempts)
	dp.SetDefault(cfgKeyRetriesPolicyStrategy, RetryPolicyExponential)
	dp.SetDefault(cfgKeyRetriesPolicyExponentialInitialInterval, DefaultExponentialBackoffInitialInterval)
	dp.SetDefault(cfgKeyRetriesPolicyExponentialMultiplier, float64(DefaultExponentialBackoffMultiplier))
	dp.SetDefault(cfgKeyRetriesPolicyConstantInterval, DefaultExponentialBackoffInitialInterval)
	dp.SetDefault(cfgKeyRateLimitsBurst, DefaultRateLimitingBurst)
	dp.SetDefault(cfgKeyRateLimitsWaitTimeout, DefaultRateLimitingWaitTimeout)
	dp.SetDefault(cfgKeyLogMode, string(LoggingModeFailed))
}

// Set sets HTTP client configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, errors.New("must not be negative"))
	}
	if err = c.setRetries(dp); err != nil {
		return err
	}
	if err = c.setRateLimits(dp); err != nil {
		return err
	}
	if err = c.setLog(dp); err != nil {
		return err
	}
	c.Metrics.Enabled, err = dp.GetBool(cfgKeyMetricsEnabled)
	return err
}

func (c *Config) setRetries(dp config.DataProvider) error {
	var err error
	if c.Retries.Enabled, err = dp.GetBool(cfgKeyRetriesEnabled); err != nil {
		return err
	}
	if c.Retries.MaxAttempts, err = dp.GetInt(cfgKeyRetriesMaxAttempts); err != nil {
		return err
	}
	if c.Retries.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyRetriesMaxAttempts, errors.New("must not be negative"))
	}

	strategy, err := dp.GetStringFromSet(cfgKeyRetriesPolicyStrategy, availableRetryStrategies, true)
	if err != nil {
		return err
	}
	policy := &c.Retries.Policy
	policy.Strategy = strings.ToLower(strategy)
	if policy.ExponentialBackoffInitialInterval, err = dp.GetDuration(cfgKeyRetriesPolicyExponentialInitialInterval); err != nil {
		return err
	}
	if policy.ExponentialBackoffInitialInterval < 0 {
		return dp.WrapKeyErr(cfgKeyRetriesPolicyExponentialInitialInterval, errors.New("must not be negative"))
	}
	if policy.ExponentialBackoffMultiplier, err = dp.GetFloat64(cfgKeyRetriesPolicyExponentialMultiplier); err != nil {
		return err
	}
	if policy.ExponentialBackoffMultiplier <= 1 {
		return dp.WrapKeyErr(cfgKeyRetriesPolicyExponentialMultiplier, errors.New("must be greater than 1"))
	}
	if policy.ConstantBackoffInterval, err = dp.GetDuration(cfgKeyRetriesPolicyConstantInterval); err != nil {
		return err
	}
	if policy.ConstantBackoffInterval < 0 {
		return dp.WrapKeyErr(cfgKeyRetriesPolicyConstantInterval, errors.New("must not be negative"))
	}
	return nil
}

func (c *Config) setRateLimits(dp config.DataProvider) error {
	var err error
	if c.RateLimits.Enabled, err = dp.GetBool(cfgKeyRateLimitsEnabled); err != nil {
		return err
	}
	if c.RateLimits.Limit, err = dp.GetInt(cfgKeyRateLimitsLimit); err != nil {
		return err
	}
	if c.RateLimits.Enabled && c.RateLimits.Limit <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsLimit, errors.New("must be positive"))
	}
	if c.RateLimits.Burst, err = dp.GetInt(cfgKeyRateLimitsBurst); err != nil {
		return err
	}
	if c.RateLimits.Burst < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsBurst, errors.New("must not be negative"))
	}
	if c.RateLimits.WaitTimeout, err = dp.GetDuration(cfgKeyRateLimitsWaitTimeout); err != nil {
		return err
	}
	if c.RateLimits.WaitTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsWaitTimeout, errors.New("must not be negative"))
	}
	return nil
}

func (c *Config) setLog(dp config.DataProvider) error {
	var err error
	if c.Log.Enabled, err = dp.GetBool(cfgKeyLogEnabled); err != nil {
		return err
	}
	mode, err := dp.GetStringFromSet(cfgKeyLogMode, availableLoggingModes, true)
	if err != nil {
		return err
	}
	c.Log.Mode = LoggingMode(strings.ToLower(mode))
	if c.Log.SlowRequestThreshold, err = dp.GetDuration(cfgKeyLogSlowRequestThreshold); err != nil {
		return err
	}
	if c.Log.SlowRequestThreshold < 0 {
		return dp.WrapKeyErr(cfgKeyLogSlowRequestThreshold, errors.New("must not be negative"))
	}
	return nil
}

// BackoffPolicy returns a retry policy built from the configured strategy.
// The number of attempts is limited by the retryable round tripper, not by the policy.
func (c *RetriesConfig) BackoffPolicy() retry.Policy {
	if c.Policy.Strategy == RetryPolicyConstant {
		return retry.ConstantBackoffPolicy{Interval: c.Policy.ConstantBackoffInterval}
	}
	return retry.ExponentialBackoffPolicy{
		InitialInterval: c.Policy.ExponentialBackoffInitialInterval,
		Multiplier:      c.Policy.ExponentialBackoffMultiplier,
	}
}

// TransportOpts returns options for RetryableRoundTripper.
func (c *RetriesConfig) TransportOpts() RetryableRoundTripperOpts {
	return RetryableRoundTripperOpts{MaxRetryAttempts: c.MaxAttempts, BackoffPolicy: c.BackoffPolicy()}
}

// TransportOpts returns options for RateLimitingRoundTripper.
func (c *RateLimitConfig) TransportOpts() RateLimitingRoundTripperOpts {
	return RateLimitingRoundTripperOpts{Burst: c.Burst, WaitTimeout: c.WaitTimeout}
}

// TransportOpts returns options for LoggingRoundTripper.
func (c *LogConfig) TransportOpts() LoggingRoundTripperOpts {
	return LoggingRoundTripperOpts{Mode: c.Mode, SlowRequestThreshold: c.SlowRequestThreshold}
}
