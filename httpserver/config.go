/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"time"

	"github.com/acronis/go-mlbroker/config"
)

const cfgDefaultKeyPrefix = "server"

const (
	cfgKeyServerAddress                 = "address"
	cfgKeyServerTimeoutsWrite           = "timeouts.write"
	cfgKeyServerTimeoutsRead            = "timeouts.read"
	cfgKeyServerTimeoutsReadHeader      = "timeouts.readHeader"
	cfgKeyServerTimeoutsIdle            = "timeouts.idle"
	cfgKeyServerTimeoutsShutdown        = "timeouts.shutdown"
	cfgKeyServerLogRequestStart         = "log.requestStart"
	cfgKeyServerLogExcludedEndpoints    = "log.excludedEndpoints"
	cfgKeyServerLogSlowRequestThreshold = "log.slowRequestThreshold"
)

// Default values. Write timeout is larger than the longest broker wait,
// so a request awaiting its turn in the queue is not cut off by the server.
const (
	DefaultAddress              = ":8080"
	DefaultTimeoutsWrite        = 6 * time.Minute
	DefaultTimeoutsRead         = 15 * time.Second
	DefaultTimeoutsReadHeader   = 10 * time.Second
	DefaultTimeoutsIdle         = time.Minute
	DefaultTimeoutsShutdown     = 5 * time.Second
	DefaultSlowRequestThreshold = time.Second
)

var defaultExcludedEndpoints = []string{"/healthz", "/metrics"}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Config represents a set of configuration parameters for HTTPServer.
type Config struct {
	Address  string
	Timeouts TimeoutsConfig
	Log      LogConfig

	keyPrefix string
}

// TimeoutsConfig represents a set of configuration parameters for HTTPServer relating to timeouts.
type TimeoutsConfig struct {
	Write      time.Duration
	Read       time.Duration
	ReadHeader time.Duration
	Idle       time.Duration
	Shutdown   time.Duration
}

// LogConfig represents a set of configuration parameters for HTTPServer relating to logging.
type LogConfig struct {
	RequestStart         bool
	ExcludedEndpoints    []string
	SlowRequestThreshold time.Duration
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

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		keyPrefix: cfgDefaultKeyPrefix,
		Address:   DefaultAddress,
		Timeouts: TimeoutsConfig{
			Write:      DefaultTimeoutsWrite,
			Read:       DefaultTimeoutsRead,
			ReadHeader: DefaultTimeoutsReadHeader,
			Idle:       DefaultTimeoutsIdle,
			Shutdown:   DefaultTimeoutsShutdown,
		},
		Log: LogConfig{
			ExcludedEndpoints:    defaultExcludedEndpoints,
			SlowRequestThreshold: DefaultSlowRequestThreshold,
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for HTTPServer in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyServerAddress, DefaultAddress)
	dp.SetDefault(cfgKeyServerTimeoutsWrite, DefaultTimeoutsWrite)
	dp.SetDefault(cfgKeyServerTimeoutsRead, DefaultTimeoutsRead)
	dp.SetDefault(cfgKeyServerTimeoutsReadHeader, DefaultTimeoutsReadHeader)
	dp.SetDefault(cfgKeyServerTimeoutsIdle, DefaultTimeoutsIdle)
	dp.SetDefault(cfgKeyServerTimeoutsShutdown, DefaultTimeoutsShutdown)
	dp.SetDefault(cfgKeyServerLogRequestStart, false)
	dp.SetDefault(cfgKeyServerLogExcludedEndpoints, defaultExcludedEndpoints)
	dp.SetDefault(cfgKeyServerLogSlowRequestThreshold, DefaultSlowRequestThreshold)
}

// Set sets HTTPServer configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Address, err = dp.GetString(cfgKeyServerAddress); err != nil {
		return err
	}
	if c.Address == "" {
		return dp.WrapKeyErr(cfgKeyServerAddress, fmt.Errorf("cannot be empty"))
	}
	if err = c.Timeouts.set(dp); err != nil {
		return err
	}
	return c.Log.set(dp)
}

func (t *TimeoutsConfig) set(dp config.DataProvider) error {
	for _, item := range []struct {
		key string
		dst *time.Duration
	}{
		{cfgKeyServerTimeoutsWrite, &t.Write},
		{cfgKeyServerTimeoutsRead, &t.Read},
		{cfgKeyServerTimeoutsReadHeader, &t.ReadHeader},
		{cfgKeyServerTimeoutsIdle, &t.Idle},
		{cfgKeyServerTimeoutsShutdown, &t.Shutdown},
	} {
		dur, err := dp.GetDuration(item.key)
		if err != nil {
			return err
		}
		if dur < 0 {
			return dp.WrapKeyErr(item.key, fmt.Errorf("cannot be negative"))
		}
		*item.dst = dur
	}
	return nil
}

func (l *LogConfig) set(dp config.DataProvider) error {
	var err error
	if l.RequestStart, err = dp.GetBool(cfgKeyServerLogRequestStart); err != nil {
		return err
	}
	if l.ExcludedEndpoints, err = dp.GetStringSlice(cfgKeyServerLogExcludedEndpoints); err != nil {
		return err
	}
	if l.SlowRequestThreshold, err = dp.GetDuration(cfgKeyServerLogSlowRequestThreshold); err != nil {
		return err
	}
	return nil
}
