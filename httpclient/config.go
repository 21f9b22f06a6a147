/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/acronis/go-mlbroker/config"
)

const cfgDefaultKeyPrefix = "httpClient"

const (
	cfgKeyTimeout                 = "timeout"
	cfgKeyMaxIdleConnsPerHost     = "maxIdleConnsPerHost"
	cfgKeyLogEnabled              = "log.enabled"
	cfgKeyLogMode                 = "log.mode"
	cfgKeyLogSlowRequestThreshold = "log.slowRequestThreshold"
	cfgKeyMetricsEnabled          = "metrics.enabled"
)

// Default values.
const (
	// DefaultTimeout is 0 (no client-wide limit). Per-request deadlines are set by the caller's context.
	DefaultTimeout = 0

	DefaultMaxIdleConnsPerHost = 10
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// LogConfig represents configuration options for HTTP client logs.
type LogConfig struct {
	// Enabled is a flag that enables logging.
	Enabled bool

	// SlowRequestThreshold is a threshold for slow requests.
	// Requests that are faster are not logged (failed requests are logged anyway).
	SlowRequestThreshold time.Duration

	// Mode of logging: none, all, failed.
	Mode LoggingMode
}

// TransportOpts returns transport options.
func (c *LogConfig) TransportOpts() LoggingRoundTripperOpts {
	return LoggingRoundTripperOpts{
		Mode:                 c.Mode,
		SlowRequestThreshold: c.SlowRequestThreshold,
	}
}

// MetricsConfig represents configuration options for HTTP client metrics.
type MetricsConfig struct {
	// Enabled is a flag that enables metrics.
	Enabled bool
}

// Config represents options for HTTP client configuration.
type Config struct {
	// Timeout is the maximum time for a whole request (including reading the response body).
	Timeout time.Duration

	// MaxIdleConnsPerHost controls the maximum idle (keep-alive) connections to keep per-host.
	MaxIdleConnsPerHost int

	// Log is a configuration for HTTP client logs.
	Log LogConfig

	// Metrics is a configuration for HTTP client metrics.
	Metrics MetricsConfig

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultTimeout)
	dp.SetDefault(cfgKeyMaxIdleConnsPerHost, DefaultMaxIdleConnsPerHost)
	dp.SetDefault(cfgKeyLogEnabled, true)
	dp.SetDefault(cfgKeyLogMode, string(LoggingModeFailed))
	dp.SetDefault(cfgKeyLogSlowRequestThreshold, time.Second)
	dp.SetDefault(cfgKeyMetricsEnabled, true)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, fmt.Errorf("cannot be negative"))
	}

	if c.MaxIdleConnsPerHost, err = dp.GetInt(cfgKeyMaxIdleConnsPerHost); err != nil {
		return err
	}
	if c.MaxIdleConnsPerHost < 0 {
		return dp.WrapKeyErr(cfgKeyMaxIdleConnsPerHost, fmt.Errorf("cannot be negative"))
	}

	if err = c.setLogConfig(dp); err != nil {
		return err
	}

	if c.Metrics.Enabled, err = dp.GetBool(cfgKeyMetricsEnabled); err != nil {
		return err
	}

	return nil
}

func (c *Config) setLogConfig(dp config.DataProvider) error {
	var err error
	if c.Log.Enabled, err = dp.GetBool(cfgKeyLogEnabled); err != nil {
		return err
	}
	if !c.Log.Enabled {
		return nil
	}

	if c.Log.SlowRequestThreshold, err = dp.GetDuration(cfgKeyLogSlowRequestThreshold); err != nil {
		return err
	}
	if c.Log.SlowRequestThreshold < 0 {
		return dp.WrapKeyErr(cfgKeyLogSlowRequestThreshold, fmt.Errorf("cannot be negative"))
	}

	availableModes := []string{string(LoggingModeNone), string(LoggingModeAll), string(LoggingModeFailed)}
	var mode string
	if mode, err = dp.GetStringFromSet(cfgKeyLogMode, availableModes, true); err != nil {
		return err
	}
	c.Log.Mode = LoggingMode(strings.ToLower(mode))

	return nil
}
