// Package cli implements the chompy command-line interface using Cobra.
// Commands either serve the HTTP API or operate on the local state database
// directly, one user at a time.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chompy-labs/chompy/internal/api"
)

var rootCmd = &cobra.Command{
	Use:   "chompy",
	Short: "chompy — gamified meal tracking",
	Long: `chompy tracks meals and rewards consistency.
Log food, keep your streak alive, unlock achievements, take on weekly
challenges and keep your pet happy.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version
	api.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
