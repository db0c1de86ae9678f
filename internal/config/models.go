package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muurk/smartlock/internal/netaddr"
)

// CurrentVersion is the config file format version.
const CurrentVersion = 1

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the whole controller configuration file.
type Config struct {
	Version   int             `yaml:"version"`
	LogLevel  string          `yaml:"log_level,omitempty"`
	WiFi      WiFiConfig      `yaml:"wifi"`
	Device    DeviceConfig    `yaml:"device"`
	Server    ServerConfig    `yaml:"server"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// WiFiConfig is the network the controller joins.
type WiFiConfig struct {
	SSID     string        `yaml:"ssid"`
	Password string        `yaml:"password"`
	Backoff  time.Duration `yaml:"backoff"` // Wait between association attempts
}

// DeviceConfig is the controller's identity on the network.
type DeviceConfig struct {
	StaticIP  string `yaml:"static_ip"`
	PrefixLen int    `yaml:"prefix_len"`
	Secret    string `yaml:"secret"` // Password expected by /lock and /unlock
	// BindAny listens on every interface, for hosts that do not own StaticIP.
	BindAny bool `yaml:"bind_any,omitempty"`
}

// ServerConfig tunes the control endpoint.
type ServerConfig struct {
	Port             int           `yaml:"port"`
	Workers          int           `yaml:"workers"`
	BufferSize       int           `yaml:"buffer_size"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	LinkPollInterval time.Duration `yaml:"link_poll_interval"`
	CloseGrace       time.Duration `yaml:"close_grace"`
	CertFile         string        `yaml:"cert_file,omitempty"` // Empty means generate at startup
	KeyFile          string        `yaml:"key_file,omitempty"`
	ClientAuth       string        `yaml:"client_auth"` // none, request or require
}

// DiscoveryConfig controls the mDNS advertisement.
type DiscoveryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
	Service  string `yaml:"service"`
	Domain   string `yaml:"domain"`
}

// MQTTConfig controls lock state publishing.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	TLS         bool   `yaml:"tls"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

// Default returns a Config with every tunable set. Credentials and the
// static address are left empty.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		WiFi: WiFiConfig{
			Backoff: 5 * time.Second,
		},
		Device: DeviceConfig{
			PrefixLen: 24,
		},
		Server: ServerConfig{
			Port:             443,
			Workers:          1,
			BufferSize:       4096,
			IdleTimeout:      10 * time.Second,
			LinkPollInterval: 500 * time.Millisecond,
			CloseGrace:       1000 * time.Millisecond,
			ClientAuth:       "none",
		},
		Discovery: DiscoveryConfig{
			Enabled:  true,
			Instance: "smartlock",
			Service:  "_smartlock._tcp",
			Domain:   "local.",
		},
		MQTT: MQTTConfig{
			ClientID:    "smartlock",
			TopicPrefix: "smartlock",
			QoS:         1,
		},
	}
}

// Address parses the configured static address.
func (c *Config) Address() (netaddr.Address, error) {
	return netaddr.Parse(c.Device.StaticIP)
}

// Validate reports the first problem that would stop the controller from
// starting.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if c.WiFi.SSID == "" {
		return fmt.Errorf("%w: wifi.ssid is empty", ErrInvalid)
	}
	if _, err := c.Address(); err != nil {
		return fmt.Errorf("%w: device.static_ip: %w", ErrInvalid, err)
	}
	if c.Device.PrefixLen < 1 || c.Device.PrefixLen > 32 {
		return fmt.Errorf("%w: device.prefix_len %d out of range", ErrInvalid, c.Device.PrefixLen)
	}
	if c.Device.Secret == "" {
		return fmt.Errorf("%w: device.secret is empty", ErrInvalid)
	}
	if strings.ContainsAny(c.Device.Secret, " \t\r\n") {
		return fmt.Errorf("%w: device.secret must not contain whitespace", ErrInvalid)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}
	if c.Server.Workers < 1 {
		return fmt.Errorf("%w: server.workers must be at least 1", ErrInvalid)
	}
	if c.Server.BufferSize < 256 {
		return fmt.Errorf("%w: server.buffer_size must be at least 256", ErrInvalid)
	}
	switch c.Server.ClientAuth {
	case "", "none", "request", "require":
	default:
		return fmt.Errorf("%w: server.client_auth %q (want none, request or require)", ErrInvalid, c.Server.ClientAuth)
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return fmt.Errorf("%w: server.cert_file and server.key_file must be set together", ErrInvalid)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker is required when mqtt is enabled", ErrInvalid)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("%w: mqtt.qos %d out of range", ErrInvalid, c.MQTT.QoS)
	}
	return nil
}
