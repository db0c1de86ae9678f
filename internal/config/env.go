package config

// Environment variables that override values from the file.
const (
	EnvSSID           = "SMARTLOCK_SSID"
	EnvWiFiPassword   = "SMARTLOCK_WIFI_PASSWORD"
	EnvStaticIP       = "SMARTLOCK_STATIC_IP"
	EnvDevicePassword = "SMARTLOCK_DEVICE_PASSWORD"
)

// ApplyEnv overrides the network name, network password, static address
// and control secret from lookup. Unset variables leave the value alone.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvSSID); ok {
		c.WiFi.SSID = v
	}
	if v, ok := lookup(EnvWiFiPassword); ok {
		c.WiFi.Password = v
	}
	if v, ok := lookup(EnvStaticIP); ok {
		c.Device.StaticIP = v
	}
	if v, ok := lookup(EnvDevicePassword); ok {
		c.Device.Secret = v
	}
}
