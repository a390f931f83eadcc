// Adminctl edits member and event rows of a running clubadmin server from
// the terminal, through the same cell editing rules as the web list.
//
// Usage:
//
//	adminctl [command] [flags]
//
// The admin key is read from CLUBADMIN_API_KEY.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adminctl",
	Short: "Edit clubadmin rows from the terminal",
	Long: `A remote client for the clubadmin server.

Shows rows and edits single fields with the server's own validation.
Choice fields can be picked interactively from a grid of buttons.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
