// Command purc is a thin CLI wrapper around the runner collaborators in
// internal/runner — the way cmd/nova is a thin wrapper around the pool,
// executor and store. It does not parse HVML itself (the eJSON/VCM
// tokenizer is an external collaborator this repository does not own);
// it brings up a runner process and its ambient stack, and offers a
// couple of introspection subcommands over the atom table.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// buildVersion is the CLI's own version, not a function version (compare
// cmd/nova's `version` command, which manages function versions — this
// domain has no such concept, so `purc version` just reports the binary).
const buildVersion = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "purc",
		Short: "purc - HVML runner",
		Long:  "A runner process that drives HVML coroutines over a cooperative event loop",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (optional, env overrides still apply)")

	rootCmd.AddCommand(
		runCmd(),
		atomCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the purc binary version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(buildVersion)
			return nil
		},
	}
}
