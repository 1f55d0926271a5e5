package main

import (
	"fmt"

	"github.com/agraph/flow/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the live scheduler monitor",
	Long:  `tui connects to a running "flowctl serve" instance and renders a live dashboard of worker-pool occupancy and per-scope window size.`,
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	app := tui.New(apiAddr)
	if err := app.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
