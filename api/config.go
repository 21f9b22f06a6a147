/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package api

import (
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/acronis/go-mlbroker/config"
)

const cfgDefaultKeyPrefix = "api"

const (
	cfgKeyDestinations       = "destinations"
	cfgKeyMaxRequestBodySize = "maxRequestBodySize"
	cfgKeyMaxWaitTimeout     = "maxWaitTimeout"
)

// Default values.
const (
	DefaultMaxRequestBodySize = 1024 * 1024
	DefaultMaxWaitTimeout     = 5 * time.Minute
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Destination is a named downstream endpoint.
type Destination struct {
	URL string

	// Timeout overrides the broker request timeout for jobs sent to this destination.
	Timeout time.Duration
}

// Config represents a set of configuration parameters for the broker HTTP API.
type Config struct {
	// Destinations maps destination names used in URLs (e.g. "predict") to downstream endpoints.
	// In configuration, a destination is either a URL string or an object with "url" and "timeout" keys.
	Destinations map[string]Destination

	// MaxRequestBodySize limits the size of a submitted payload.
	MaxRequestBodySize config.ByteSize

	// MaxWaitTimeout bounds how long a request may wait for its job to be resolved.
	MaxWaitTimeout time.Duration

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
	dp.SetDefault(cfgKeyMaxRequestBodySize, DefaultMaxRequestBodySize)
	dp.SetDefault(cfgKeyMaxWaitTimeout, DefaultMaxWaitTimeout)
}

// Set sets API configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	c.Destinations = nil
	if err = dp.UnmarshalKey(cfgKeyDestinations, &c.Destinations, config.WithDecodeHook(destinationFromURLHook)); err != nil {
		return err
	}
	for name, dest := range c.Destinations {
		if err = dest.validate(); err != nil {
			return dp.WrapKeyErr(cfgKeyDestinations+"."+name, err)
		}
	}

	if c.MaxRequestBodySize, err = dp.GetByteSize(cfgKeyMaxRequestBodySize); err != nil {
		return err
	}
	if c.MaxRequestBodySize == 0 {
		return dp.WrapKeyErr(cfgKeyMaxRequestBodySize, fmt.Errorf("should be positive"))
	}

	if c.MaxWaitTimeout, err = dp.GetDuration(cfgKeyMaxWaitTimeout); err != nil {
		return err
	}
	if c.MaxWaitTimeout <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxWaitTimeout, fmt.Errorf("should be positive"))
	}

	return nil
}

func (d Destination) validate() error {
	u, err := url.Parse(d.URL)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("absolute http(s) URL is expected, got %q", d.URL)
	}
	if d.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %s", d.Timeout)
	}
	return nil
}

// destinationFromURLHook allows the short "name: url" form of a destination.
func destinationFromURLHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(Destination{}) {
		return data, nil
	}
	return map[string]interface{}{"url": data}, nil
}

var _ mapstructure.DecodeHookFuncType = destinationFromURLHook
