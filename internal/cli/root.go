// Package cli holds the tesouraria commands: the HTTP server plus the
// maintenance tasks an operator runs by hand (migrations, users, snapshots).
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var flagConfigFile string

// NewRootCmd builds the command tree. Running it without a subcommand serves the API.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tesouraria",
		Short:        "Church treasury API",
		Long:         "Registers dizimistas and lançamentos and computes the monthly cash report.",
		SilenceUsage: true,
		RunE:         runServe,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagConfigFile != "" {
				os.Setenv("CONFIG_FILE", flagConfigFile)
			}
		},
	}
	root.PersistentFlags().StringVarP(&flagConfigFile, "config", "c", "", "TOML config file (overrides CONFIG_FILE)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newUserCmd(),
		newHashPasswordCmd(),
		newSnapshotCmd(),
	)
	return root
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
