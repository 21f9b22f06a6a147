/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package broker

import (
	"fmt"
	"time"

	"github.com/acronis/go-mlbroker/config"
)

const cfgDefaultKeyPrefix = "broker"

const (
	cfgKeyRateLimit           = "rateLimit"
	cfgKeyPollBackoff         = "pollBackoff"
	cfgKeyRequestTimeout      = "requestTimeout"
	cfgKeyMaxQueueSize        = "maxQueueSize"
	cfgKeyMaxResponseBodySize = "maxResponseBodySize"
	cfgKeyGracefulStopTimeout = "gracefulStopTimeout"
	cfgKeyStatsInterval       = "statsInterval"
)

// Default values.
const (
	DefaultPollBackoff         = time.Second
	DefaultRequestTimeout      = 60 * time.Second
	DefaultMaxResponseBodySize = 10 * 1024 * 1024
	DefaultGracefulStopTimeout = 30 * time.Second
	DefaultStatsInterval       = time.Second
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Config represents a set of configuration parameters for the broker.
type Config struct {
	// RateLimit is the maximum number of requests that may be sent to the downstream within any trailing minute.
	// It's mandatory and has no default value.
	RateLimit int

	// PollBackoff is how long the worker sleeps before re-checking the window when the limit is reached.
	PollBackoff time.Duration

	// RequestTimeout bounds a single downstream request.
	RequestTimeout time.Duration

	// MaxQueueSize limits the number of waiting jobs. 0 means unlimited.
	MaxQueueSize int

	// MaxResponseBodySize limits the size of the downstream response body.
	MaxResponseBodySize config.ByteSize

	// GracefulStopTimeout bounds draining of the queue on graceful stop.
	GracefulStopTimeout time.Duration

	// StatsInterval is how often the queue stats are reported.
	StatsInterval time.Duration

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows to specify key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyPollBackoff, DefaultPollBackoff)
	dp.SetDefault(cfgKeyRequestTimeout, DefaultRequestTimeout)
	dp.SetDefault(cfgKeyMaxQueueSize, 0)
	dp.SetDefault(cfgKeyMaxResponseBodySize, DefaultMaxResponseBodySize)
	dp.SetDefault(cfgKeyGracefulStopTimeout, DefaultGracefulStopTimeout)
	dp.SetDefault(cfgKeyStatsInterval, DefaultStatsInterval)
}

// Set sets broker configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if !dp.IsSet(cfgKeyRateLimit) {
		return dp.WrapKeyErr(cfgKeyRateLimit, fmt.Errorf("is required"))
	}
	if c.RateLimit, err = dp.GetInt(cfgKeyRateLimit); err != nil {
		return err
	}
	if c.RateLimit < 1 {
		return dp.WrapKeyErr(cfgKeyRateLimit, fmt.Errorf("should be positive, got %d", c.RateLimit))
	}

	if c.PollBackoff, err = dp.GetDuration(cfgKeyPollBackoff); err != nil {
		return err
	}
	if c.PollBackoff <= 0 {
		return dp.WrapKeyErr(cfgKeyPollBackoff, fmt.Errorf("should be positive"))
	}

	if c.RequestTimeout, err = dp.GetDuration(cfgKeyRequestTimeout); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return dp.WrapKeyErr(cfgKeyRequestTimeout, fmt.Errorf("should be positive"))
	}

	if c.MaxQueueSize, err = dp.GetInt(cfgKeyMaxQueueSize); err != nil {
		return err
	}
	if c.MaxQueueSize < 0 {
		return dp.WrapKeyErr(cfgKeyMaxQueueSize, fmt.Errorf("cannot be negative"))
	}

	if c.MaxResponseBodySize, err = dp.GetByteSize(cfgKeyMaxResponseBodySize); err != nil {
		return err
	}
	if c.MaxResponseBodySize == 0 {
		return dp.WrapKeyErr(cfgKeyMaxResponseBodySize, fmt.Errorf("should be positive"))
	}

	if c.GracefulStopTimeout, err = dp.GetDuration(cfgKeyGracefulStopTimeout); err != nil {
		return err
	}
	if c.GracefulStopTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyGracefulStopTimeout, fmt.Errorf("cannot be negative"))
	}

	if c.StatsInterval, err = dp.GetDuration(cfgKeyStatsInterval); err != nil {
		return err
	}
	if c.StatsInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyStatsInterval, fmt.Errorf("should be positive"))
	}

	return nil
}
