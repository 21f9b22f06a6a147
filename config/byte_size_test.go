/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    ByteSize
		wantErr bool
	}{
		{in: "2048", want: 2048},
		{in: "512K", want: 512 * 1024},
		{in: "10M", want: 10 * 1024 * 1024},
		{in: "10MB", want: 10 * 1024 * 1024},
		{in: "1Mi", want: 1024 * 1024},
		{in: " 1Gi ", want: 1024 * 1024 * 1024},
		{in: "-1", wantErr: true},
		{in: "lots", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseByteSize(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestByteSize_Unmarshal(t *testing.T) {
	type limits struct {
		MaxBody ByteSize `json:"maxBody" yaml:"maxBody"`
	}

	t.Run("json", func(t *testing.T) {
		var l limits
		require.NoError(t, json.Unmarshal([]byte(`{"maxBody":"10M"}`), &l))
		require.Equal(t, ByteSize(10*1024*1024), l.MaxBody)

		require.NoError(t, json.Unmarshal([]byte(`{"maxBody":2048}`), &l))
		require.Equal(t, ByteSize(2048), l.MaxBody)

		require.Error(t, json.Unmarshal([]byte(`{"maxBody":-1}`), &l))
		require.Error(t, json.Unmarshal([]byte(`{"maxBody":"lots"}`), &l))
	})

	t.Run("yaml", func(t *testing.T) {
		var l limits
		require.NoError(t, yaml.Unmarshal([]byte("maxBody: 1Mi\n"), &l))
		require.Equal(t, ByteSize(1024*1024), l.MaxBody)

		require.NoError(t, yaml.Unmarshal([]byte("maxBody: 100\n"), &l))
		require.Equal(t, ByteSize(100), l.MaxBody)

		require.Error(t, yaml.Unmarshal([]byte("maxBody: [1]\n"), &l))
	})

	t.Run("marshal", func(t *testing.T) {
		data, err := json.Marshal(limits{MaxBody: 10 * 1024 * 1024})
		require.NoError(t, err)
		require.JSONEq(t, `{"maxBody":"10M"}`, string(data))

		out, err := yaml.Marshal(limits{MaxBody: 512 * 1024})
		require.NoError(t, err)
		require.Equal(t, "maxBody: 512K\n", string(out))
	})
}
