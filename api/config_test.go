/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package api

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-mlbroker/config"
)

func TestConfig(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(`api: {}`), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Empty(t, cfg.Destinations)
		require.Equal(t, config.ByteSize(DefaultMaxRequestBodySize), cfg.MaxRequestBodySize)
		require.Equal(t, DefaultMaxWaitTimeout, cfg.MaxWaitTimeout)
	})

	t.Run("custom values", func(t *testing.T) {
		cfgData := bytes.NewBufferString(`
api:
  destinations:
    predict: http://ml.local:8000/predict
    parser:
      url: https://parser.local/parse
      timeout: 2m
  maxRequestBodySize: 4M
  maxWaitTimeout: 30s
`)
		cfg := NewConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(cfgData, config.DataTypeYAML, cfg))
		require.Equal(t, map[string]Destination{
			"predict": {URL: "http://ml.local:8000/predict"},
			"parser":  {URL: "https://parser.local/parse", Timeout: 2 * time.Minute},
		}, cfg.Destinations)
		require.Equal(t, config.ByteSize(4*1024*1024), cfg.MaxRequestBodySize)
		require.Equal(t, 30*time.Second, cfg.MaxWaitTimeout)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			cfgData string
			wantErr string
		}{
			{
				name:    "relative destination url",
				cfgData: `api: {destinations: {predict: /predict}}`,
				wantErr: `api.destinations.predict: absolute http(s) URL is expected, got "/predict"`,
			},
			{
				name:    "negative destination timeout",
				cfgData: `api: {destinations: {predict: {url: "http://ml.local/predict", timeout: -1s}}}`,
				wantErr: `api.destinations.predict: timeout cannot be negative, got -1s`,
			},
			{
				name:    "destination without url",
				cfgData: `api: {destinations: {predict: {timeout: 1s}}}`,
				wantErr: `api.destinations.predict: absolute http(s) URL is expected, got ""`,
			},
			{
				name:    "zero wait timeout",
				cfgData: `api: {maxWaitTimeout: 0s}`,
				wantErr: `api.maxWaitTimeout: should be positive`,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := NewConfig()
				err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
				require.EqualError(t, err, tt.wantErr)
			})
		}
	})
}
