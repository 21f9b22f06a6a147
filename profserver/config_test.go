/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package profserver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-mlbroker/config"
)

func TestConfig(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer(nil), config.DataTypeYAML, cfg))
		require.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("custom values", func(t *testing.T) {
		cfgData := bytes.NewBufferString(`
profServer:
  enabled: true
  address: "0.0.0.0:6060"
`)
		cfg := NewConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(cfgData, config.DataTypeYAML, cfg))
		require.True(t, cfg.Enabled)
		require.Equal(t, "0.0.0.0:6060", cfg.Address)
	})

	t.Run("invalid address", func(t *testing.T) {
		cfgData := bytes.NewBufferString(`
profServer:
  enabled: true
  address: "6060"
`)
		err := config.NewDefaultLoader("").LoadFromReader(cfgData, config.DataTypeYAML, NewConfig())
		require.ErrorContains(t, err, "profServer.address: ")
	})

	t.Run("address is not checked when disabled", func(t *testing.T) {
		cfgData := bytes.NewBufferString(`
profServer:
  address: ""
`)
		cfg := NewConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(cfgData, config.DataTypeYAML, cfg))
		require.False(t, cfg.Enabled)
	})
}
