package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/smartlock/internal/client"
	"github.com/muurk/smartlock/internal/config"
	"github.com/muurk/smartlock/internal/discovery"
	"github.com/muurk/smartlock/internal/lockstate"
	"github.com/muurk/smartlock/internal/ui"
)

// Controller command flags
var (
	controllerURL string
	instance      string
	fingerprint   string
	insecure      bool
	password      string
	timeoutSecs   int
	scanTimeout   int
	configPath    string
	force         bool
)

func init() {
	// Common flags for controller commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&controllerURL, "url", "", "Controller URL (skips discovery)")
	rootCmd.PersistentFlags().StringVar(&instance, "instance", "smartlock", "mDNS instance to resolve when --url is not given")
	rootCmd.PersistentFlags().StringVar(&fingerprint, "fingerprint", "", "Pin the controller certificate by SHA-256 fingerprint")
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "Accept any controller certificate")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 10, "Request and discovery timeout in seconds")

	lockCmd.Flags().StringVar(&password, "password", "", "Control secret (prompted when omitted)")
	unlockCmd.Flags().StringVar(&password, "password", "", "Control secret (prompted when omitted)")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(configCmd)
}

// discoverCmd lists controllers on the network
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan for smartlock controllers on the network",
	Long: `Scan for smartlock controllers using mDNS/DNS-SD discovery.

This command listens for controller advertisements and displays every
controller found with its address and URL.`,
	Example: `  # Scan for 10 seconds (default)
  smartlock-cli discover

  # Quick 3-second scan
  smartlock-cli discover --scan-timeout 3`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&scanTimeout, "scan-timeout", 10, "Scan timeout in seconds")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("DISCOVER", "smartlock-cli discover", map[string]string{
		"Timeout": strconv.Itoa(scanTimeout) + "s",
	})

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second

	var found []*discovery.Controller
	err := ui.RunWithSpinner(cmd.OutOrStdout(), "Scanning for controllers...", func() error {
		var err error
		found, err = scanner.Scan(cmd.Context())
		return err
	})
	if err != nil {
		p.PrintError("Scan failed", err, nil)
		return err
	}

	if len(found) == 0 {
		p.PrintResult(ui.NewWarningResult("No controllers found", map[string]string{
			"Hint": "Check the controller is joined to this network, or pass --url",
		}))
		return nil
	}

	for _, c := range found {
		details := map[string]string{
			"Host": c.Hostname,
			"URL":  c.BaseURL(),
		}
		if v := c.GetMetadata("version"); v != "" {
			details["Version"] = v
		}
		p.PrintSuccess(c.Instance, details)
	}
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the controller lock state",
	Example: `  # Resolve the default instance over mDNS
  smartlock-cli status

  # Query a known controller with a pinned certificate
  smartlock-cli status --url https://192.168.1.50 --fingerprint AB:CD:...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd, "STATUS", nil)
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd, "LOCK", (*client.Client).Lock)
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the controller",
	Example: `  # Prompt for the secret
  smartlock-cli unlock --url https://192.168.1.50 --insecure

  # Pass the secret on the command line
  smartlock-cli unlock --password hunter2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd, "UNLOCK", (*client.Client).Unlock)
	},
}

type toggleFunc func(*client.Client, context.Context, string) (*client.Result, error)

// runRequest resolves the controller, sends one request and prints the
// resulting state. A nil toggle only reads the state.
func runRequest(cmd *cobra.Command, title string, toggle toggleFunc) error {
	ctx := cmd.Context()
	p := ui.NewPrinter(cmd.OutOrStdout())

	baseURL, err := resolveController(ctx, cmd)
	if err != nil {
		p.PrintError("Controller not found", err, []string{
			"Check the controller is joined to this network",
			"Pass the address directly with --url",
		})
		return err
	}

	p.PrintHeader(title, "smartlock-cli "+strings.ToLower(title), map[string]string{"Controller": baseURL})

	secret := ""
	if toggle != nil {
		secret, err = readPassword()
		if err != nil {
			return err
		}
	}

	c := client.NewClient(baseURL, client.Options{
		Fingerprint: fingerprint,
		Insecure:    insecure,
		Timeout:     time.Duration(timeoutSecs) * time.Second,
	})

	var res *client.Result
	err = ui.RunWithSpinner(cmd.OutOrStdout(), "Contacting controller...", func() error {
		var err error
		if toggle == nil {
			res, err = c.Status(ctx)
		} else {
			res, err = toggle(c, ctx, secret)
		}
		return err
	})
	if err != nil {
		p.PrintResult(failureResult(title, baseURL, res, err))
		return err
	}

	p.PrintResult(ui.NewStateResult(doneTitle(title, res.State), baseURL, res.State))
	return nil
}

func doneTitle(title string, state lockstate.State) string {
	if title == "STATUS" {
		return "Controller is " + strings.ToLower(state.String())
	}
	return "Controller " + strings.ToLower(state.String())
}

func failureResult(title, baseURL string, res *client.Result, err error) *ui.Result {
	var tips []string
	switch {
	case client.IsCredentialError(err):
		tips = []string{
			"The controller did not change state",
			"Check device.secret in the controller configuration",
		}
	case client.IsTLSError(err):
		tips = []string{
			"Pin the certificate with --fingerprint (printed in the controller log)",
			"Or pass --insecure to accept any certificate",
		}
	case client.IsRetryable(err):
		tips = []string{
			"Check the controller is powered and joined to the network",
			"The controller serves one connection at a time; retry shortly",
		}
	}

	r := ui.NewFailureResult(strings.ToLower(title)+" failed", err, tips)
	r.AddDetail("Controller", baseURL)
	if res != nil {
		r.AddDetail("State", ui.StateName(res.State))
	}
	return r
}

func resolveController(ctx context.Context, cmd *cobra.Command) (string, error) {
	if controllerURL != "" {
		return strings.TrimRight(controllerURL, "/"), nil
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(timeoutSecs) * time.Second

	var found *discovery.Controller
	err := ui.RunWithSpinner(cmd.OutOrStdout(), "Resolving "+instance+"...", func() error {
		var err error
		found, err = scanner.WaitFor(ctx, instance)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", instance, err)
	}
	return found.BaseURL(), nil
}

// readPassword takes the secret from --password, then the environment,
// then an interactive prompt.
func readPassword() (string, error) {
	if password != "" {
		return password, nil
	}
	if v, ok := os.LookupEnv(config.EnvDevicePassword); ok && v != "" {
		return v, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no password given; use --password or " + config.EnvDevicePassword)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the controller configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with every tunable set to its default.

Fill in wifi.ssid, wifi.password, device.static_ip and device.secret before
starting smartlock-server, or provide them through the SMARTLOCK_*
environment variables.`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().StringVar(&configPath, "config", "", "Path to write (default: user config dir)")
	configInitCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Configuration written", map[string]string{
		"Path": path,
	})
	return nil
}
