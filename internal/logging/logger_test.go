package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	require.NoError(t, Initialize(""))
	assert.False(t, GetLogger().Core().Enabled(zapcore.ErrorLevel))
}

func TestForAddsComponent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	LogConnection("abc", "10.0.0.2:5000", "connection_accepted")
	LogWiFiState("Connecting", "Connected")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, ComponentServer, entries[0].ContextMap()["component"])
	assert.Equal(t, "connection_accepted", entries[0].ContextMap()["event"])
	assert.Equal(t, ComponentWiFi, entries[1].ContextMap()["component"])
}

func TestDumpsAreCapped(t *testing.T) {
	data := make([]byte, 300)
	for i := range data {
		data[i] = 'A'
	}
	assert.Len(t, hexDump(data), 512+3)
	assert.Len(t, asciiDump(data), 256)
	assert.Equal(t, "a.\x7e", asciiDump([]byte{'a', 0x01, 0x7e}))
}
