package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "1.0.0"
	commit  = "none"
	date    = "unknown"
)

// serviceName is reported by GET /.
const serviceName = "Autos CRM WebSocket Server"

func main() {
	rootCmd := &cobra.Command{
		Use:   "relay",
		Short: "Real-time event relay over WebSocket",
		Long: `relay keeps WebSocket connections from browser clients, groups them into
rooms and fans out events between clients and from internal services.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		emitCmd(),
		watchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
