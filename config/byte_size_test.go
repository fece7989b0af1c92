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

func TestByteSize_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    ByteSize
		wantErr bool
	}{
		{name: "integer", data: `1024`, want: 1024},
		{name: "string with unit", data: `"1M"`, want: 1024 * 1024},
		{name: "k8s suffix", data: `"2Ki"`, want: 2048},
		{name: "negative", data: `-1`, wantErr: true},
		{name: "garbage", data: `"lots"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var jsonVal ByteSize
			err := json.Unmarshal([]byte(tt.data), &jsonVal)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, jsonVal)

			var yamlVal ByteSize
			require.NoError(t, yaml.Unmarshal([]byte(tt.data), &yamlVal))
			require.Equal(t, tt.want, yamlVal)
		})
	}
}

func TestByteSize_Marshal(t *testing.T) {
	data, err := json.Marshal(ByteSize(1024 * 1024))
	require.NoError(t, err)
	require.Equal(t, `"1M"`, string(data))

	yamlData, err := yaml.Marshal(struct {
		Size ByteSize `yaml:"size"`
	}{Size: 512 * 1024})
	require.NoError(t, err)
	require.Equal(t, "size: 512K\n", string(yamlData))
}

func TestViperAdapter_GetByteSize(t *testing.T) {
	va := NewViperAdapter()
	va.Set("a", "4K")
	va.Set("b", 100)
	va.Set("c", -5)
	va.Set("d", "four")

	got, err := va.GetByteSize("a")
	require.NoError(t, err)
	require.Equal(t, ByteSize(4096), got)

	got, err = va.GetByteSize("b")
	require.NoError(t, err)
	require.Equal(t, ByteSize(100), got)

	_, err = va.GetByteSize("c")
	require.EqualError(t, err, "c: negative value is not allowed: -5")

	_, err = va.GetByteSize("d")
	require.ErrorContains(t, err, "d: invalid byte size format")

	got, err = va.GetByteSize("missing")
	require.NoError(t, err)
	require.Equal(t, ByteSize(0), got)
}
