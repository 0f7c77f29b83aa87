package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/cider"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cider",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cider version %s\n", strings.TrimSpace(cider.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
