// Smartlock-cli discovers and drives smartlock controllers.
//
// It finds controllers over mDNS, reads their lock state and sends lock and
// unlock requests. It also writes a starter configuration file for
// smartlock-server.
//
// Usage:
//
//	smartlock-cli [command] [flags]
//
// See 'smartlock-cli --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/smartlock/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartlock-cli",
	Short: "Smartlock controller utility",
	Long: `A standalone utility for smartlock controllers.

Discovers controllers on the local network, reports their lock state and
sends lock and unlock requests over HTTPS.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("smartlock-cli %s\n", version.Full())
	},
}
