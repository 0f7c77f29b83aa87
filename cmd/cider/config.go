package main

import (
	"os"

	"github.com/aretw0/cider/internal/cli"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved plan",
	Long:  `Prints the effective configuration of every active pipeline and action, as YAML or as a Mermaid flowchart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		format, _ := cmd.Flags().GetString("format")
		return cli.PrintConfig(os.Stdout, path, format)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringP("format", "f", cli.FormatYAML, "Output format (yaml, mermaid)")
}
