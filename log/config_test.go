/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roadnet/roadkit/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name       string
		cfgData    string
		wantCfg    *Config
		wantErrMsg string
	}{
		{
			name:    "defaults",
			cfgData: `{}`,
			wantCfg: NewDefaultConfig(),
		},
		{
			name: "text output to file",
			cfgData: `
log:
  level: DEBUG
  format: text
  output: file
  nocolor: true
  file:
    path: /var/log/roadkit.log
    rotation:
      compress: true
      maxSize: 10M
      maxBackups: 3
`,
			wantCfg: &Config{
				keyPrefix: cfgDefaultKeyPrefix,
				Level:     LevelDebug,
				Format:    FormatText,
				Output:    OutputFile,
				NoColor:   true,
				File: FileOutputConfig{
					Path: "/var/log/roadkit.log",
					Rotation: FileRotationConfig{
						Compress:   true,
						MaxSize:    10 * 1024 * 1024,
						MaxBackups: 3,
					},
				},
			},
		},
		{
			name:       "unknown level",
			cfgData:    `{"log":{"level":"trace"}}`,
			wantErrMsg: `log.level: unknown value "trace", should be one of [error warn info debug]`,
		},
		{
			name:       "file output without path",
			cfgData:    `{"log":{"output":"file"}}`,
			wantErrMsg: `log.file.path: cannot be empty when "file" output is used`,
		},
		{
			name:       "too small rotation size",
			cfgData:    `{"log":{"file":{"rotation":{"maxSize":"100K"}}}}`,
			wantErrMsg: "log.file.rotation.maxSize: should be >= 1M",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataType := config.DataTypeJSON
			if tt.cfgData[0] != '{' {
				dataType = config.DataTypeYAML
			}
			cfg := NewConfig()
			err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(tt.cfgData), dataType, cfg)
			if tt.wantErrMsg != "" {
				require.EqualError(t, err, tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantCfg, cfg)
		})
	}
}
