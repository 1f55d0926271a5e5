// Command flowctl is the CLI entry point for the dataflow scheduler,
// grounded on the teacher's cmd/neona (cobra.Command root + subcommand
// registration in init(), PersistentFlags).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiAddr string
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "flowctl",
	Short: "flowctl drives the agent-program dataflow scheduler",
	Long: `flowctl runs and inspects the dataflow scheduler: a scheduler that
extracts parallelism from a graph of python-agent and LLM-agent tasks linked
by logical variables, dispatching each task as soon as its dependences clear.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7470", "introspection API address")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file (defaults if absent)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
