package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags, or defaults to "dev".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the flowctl version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("flowctl " + version)
		return nil
	},
}
