// Package config loads and saves the controller configuration.
//
// The configuration is a YAML file. Values missing from the file keep the
// defaults from Default, and four environment variables override the
// credentials and the static address:
//
//	SMARTLOCK_SSID            wifi.ssid
//	SMARTLOCK_WIFI_PASSWORD   wifi.password
//	SMARTLOCK_STATIC_IP       device.static_ip
//	SMARTLOCK_DEVICE_PASSWORD device.secret
//
// # Configuration File Location
//
// Unless a path is given explicitly the file is read from:
//   - Linux: $XDG_CONFIG_HOME/smartlock/config.yaml or $HOME/.config/smartlock/config.yaml
//   - macOS: $HOME/.config/smartlock/config.yaml
//   - Windows: %LOCALAPPDATA%\smartlock\config.yaml
//
// # Example
//
//	version: 1
//	wifi:
//	  ssid: workshop
//	  password: hunter22
//	  backoff: 5s
//	device:
//	  static_ip: 192.168.1.50
//	  prefix_len: 24
//	  secret: abc123
//	server:
//	  port: 443
//	  workers: 2
//	  client_auth: none
//
// Validate must pass before the controller starts; a malformed static
// address is reported there.
package config
