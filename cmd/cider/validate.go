package main

import (
	"fmt"
	"os"

	"github.com/aretw0/cider/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration document for consistency",
	Long:  `Parses the document and resolves every active pipeline and action without running anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if err := cli.Validate(os.Stdout, path); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
