package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/smartlock/internal/netaddr"
)

func validConfig() *Config {
	cfg := Default()
	cfg.WiFi.SSID = "workshop"
	cfg.WiFi.Password = "hunter22"
	cfg.Device.StaticIP = "192.168.1.50"
	cfg.Device.Secret = "abc123"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, 5*time.Second, cfg.WiFi.Backoff)
	assert.Equal(t, 443, cfg.Server.Port)
	assert.Equal(t, 4096, cfg.Server.BufferSize)
	assert.Equal(t, 10*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Server.LinkPollInterval)
	assert.Equal(t, time.Second, cfg.Server.CloseGrace)
	assert.Equal(t, "_smartlock._tcp", cfg.Discovery.Service)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"empty ssid", func(c *Config) { c.WiFi.SSID = "" }, false},
		{"malformed address", func(c *Config) { c.Device.StaticIP = "192.168.1" }, false},
		{"octet out of range", func(c *Config) { c.Device.StaticIP = "192.168.1.256" }, false},
		{"empty secret", func(c *Config) { c.Device.Secret = "" }, false},
		{"secret with space", func(c *Config) { c.Device.Secret = "abc 123" }, false},
		{"no workers", func(c *Config) { c.Server.Workers = 0 }, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, false},
		{"bad client auth", func(c *Config) { c.Server.ClientAuth = "verify" }, false},
		{"cert without key", func(c *Config) { c.Server.CertFile = "cert.pem" }, false},
		{"mqtt without broker", func(c *Config) { c.MQTT.Enabled = true }, false},
		{"mqtt qos", func(c *Config) { c.MQTT.QoS = 3 }, false},
		{"wrong version", func(c *Config) { c.Version = 2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidateMalformedAddressWrapsParseError(t *testing.T) {
	cfg := validConfig()
	cfg.Device.StaticIP = "10.0.0.01"
	assert.ErrorIs(t, cfg.Validate(), netaddr.ErrMalformedAddress)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvSSID:           "garage",
		EnvStaticIP:       "10.0.0.9",
		EnvDevicePassword: "s3cret",
	}
	cfg := validConfig()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "garage", cfg.WiFi.SSID)
	assert.Equal(t, "hunter22", cfg.WiFi.Password)
	assert.Equal(t, "10.0.0.9", cfg.Device.StaticIP)
	assert.Equal(t, "s3cret", cfg.Device.Secret)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, k := range []string{EnvSSID, EnvWiFiPassword, EnvStaticIP, EnvDevicePassword} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := validConfig()
	cfg.Server.Workers = 3
	cfg.WiFi.Backoff = 2 * time.Second
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker = "broker.local:1883"

	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Setenv(EnvSSID, "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nwifi:\n  ssid: from-file\nserver:\n  workers: 4\n  idle_timeout: 3s\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.WiFi.SSID)
	assert.Equal(t, 4, cfg.Server.Workers)
	assert.Equal(t, 3*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 443, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.WiFi.Backoff)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, cfg.Version)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wifi: [unclosed"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout only applies on linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "smartlock", "config.yaml"), path)
}
