package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ttyclient",
		Short: "Attach the local terminal to a remote web terminal",
		Long: `ttyclient speaks the web terminal protocol over a websocket.

It renders remote output in the local terminal, forwards keystrokes and
window size changes, keeps the connection alive with a heartbeat, and
reconnects when the server asks it to.`,
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		connectCmd(),
		historyCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ttyclient: %s\n", err)
		os.Exit(1)
	}
}
