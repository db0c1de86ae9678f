// Smartlock-server runs the lock controller.
//
// It joins the configured Wi-Fi network, serves the lock and unlock pages
// over TLS on the controller's static address and optionally advertises
// itself over mDNS and publishes lock state changes to an MQTT broker.
//
// Usage:
//
//	smartlock-server server [flags]
//
// See 'smartlock-server server --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/smartlock/internal/app"
	"github.com/muurk/smartlock/internal/config"
	"github.com/muurk/smartlock/internal/logging"
	"github.com/muurk/smartlock/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartlock-server",
	Short: "Smartlock controller",
	Long: `The smartlock controller serves a lock and unlock page over TLS.

Requests to /lock?password=<secret> and /unlock?password=<secret> change the
lock state when the secret matches. Every other request renders the current
state.

For discovery and remote control, use the separate 'smartlock-cli' utility.`,
	Version: version.Short(),
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)
}

// Server command and flags
var (
	configPath  string
	logLevel    string
	ssid        string
	staticIP    string
	port        int
	workers     int
	certPath    string
	keyPath     string
	clientAuth  string
	bindAny     bool
	noDiscovery bool
	mqttBroker  string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the controller",
	Long: `Start the smartlock controller.

Settings are read from the configuration file, then from the SMARTLOCK_*
environment variables, then from the flags below. The Wi-Fi password and the
control secret are only taken from the file or the environment.

The server generates a self-signed certificate for its static address when
no certificate is provided. Browsers will ask for an exception the first
time they connect.`,
	Example: `  # Start with the default configuration file
  smartlock-server server

  # Start from an explicit file with debug logging
  smartlock-server server --config ./smartlock.yaml --log-level debug

  # Serve on every interface of a development host
  smartlock-server server --static-ip 127.0.0.1 --port 8443 --bind-any

  # Start with a provided certificate and publish state changes
  smartlock-server server --cert cert.pem --key key.pem --mqtt-broker 192.168.1.2:1883`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file (default: user config dir)")
	serverCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serverCmd.Flags().StringVar(&ssid, "ssid", "", "Wi-Fi network name")
	serverCmd.Flags().StringVar(&staticIP, "static-ip", "", "Controller address in dotted-quad form")
	serverCmd.Flags().IntVar(&port, "port", 0, "Control port")
	serverCmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent connections")
	serverCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (optional, will auto-generate if not provided)")
	serverCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file (optional, will auto-generate if not provided)")
	serverCmd.Flags().StringVar(&clientAuth, "client-auth", "", "Client certificate policy (none, request, require)")
	serverCmd.Flags().BoolVar(&bindAny, "bind-any", false, "Listen on every interface instead of the static address")
	serverCmd.Flags().BoolVar(&noDiscovery, "no-discovery", false, "Do not advertise the controller over mDNS")
	serverCmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "Publish lock state changes to this MQTT broker (host:port)")
}

func runServer(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return app.Main(cfg, version.Short())
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cfg.LogLevel == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		cfg.LogLevel = "info"
	}
	if flags.Changed("ssid") {
		cfg.WiFi.SSID = ssid
	}
	if flags.Changed("static-ip") {
		cfg.Device.StaticIP = staticIP
	}
	if flags.Changed("port") {
		cfg.Server.Port = port
	}
	if flags.Changed("workers") {
		cfg.Server.Workers = workers
	}
	if flags.Changed("cert") {
		cfg.Server.CertFile = certPath
	}
	if flags.Changed("key") {
		cfg.Server.KeyFile = keyPath
	}
	if flags.Changed("client-auth") {
		cfg.Server.ClientAuth = clientAuth
	}
	if flags.Changed("bind-any") {
		cfg.Device.BindAny = bindAny
	}
	if noDiscovery {
		cfg.Discovery.Enabled = false
	}
	if flags.Changed("mqtt-broker") {
		cfg.MQTT.Enabled = mqttBroker != ""
		cfg.MQTT.Broker = mqttBroker
	}
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("smartlock-server %s\n", version.Full())
	},
}
