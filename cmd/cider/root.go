package main

import (
	"fmt"
	"os"

	"github.com/aretw0/cider/pkg/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cider",
	Short: "CIder runs the pipelines declared in a configuration document",
	Long: `CIder reads a JSON or YAML document declaring pipelines and actions,
resolves their inherited settings and runs every active action in a bash,
batch or docker session. With --watch it runs again after every change.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultFile, "Configuration document (.json, .yaml or .yml)")
}
