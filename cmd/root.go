// Package cmd implements the porcini CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "porcini",
	Short: "Tool app SDK for the porcini platform",
	Long:  "porcini builds, validates and runs tool apps that plug into the porcini platform runtime",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(runCmd)
}
