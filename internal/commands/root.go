package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "ledger",
		Short:   "Double-entry bookkeeping ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "ledger.yaml", "path to the config file")
	flags.StringVar(&a.dbPath, "db", "", "path to the SQLite database (overrides config)")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newInitCommand(a),
		newServeCommand(a),
		newAccountsCommand(a),
		newTxCommand(a),
		newReportCommand(a),
	)

	return rootCmd
}
