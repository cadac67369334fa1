package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/config"
)

func newInitCommand(a *app) *cobra.Command {
	var name string
	var chartType string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new ledger with a starter chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a, name, chartType)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "ledger name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&chartType, "chart", "small_business", "starter chart: small_business or personal")

	return cmd
}

func runInit(cmd *cobra.Command, a *app, name, chartType string) error {
	// An existing config is kept; only the database is (re)seeded.
	if _, err := os.Stat(a.configPath); errors.Is(err, os.ErrNotExist) {
		cfg := config.Default(name)
		cfg.Ledger.ChartType = chartType
		if a.dbPath != "" {
			cfg.Database.Path = a.dbPath
		}
		if err := config.Save(a.configPath, cfg); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("checking config: %w", err)
	}

	e, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	chart := accounts.DefaultChart(e.cfg.Ledger.ChartType)
	added, err := e.accounts.Seed(cmd.Context(), chart)
	if err != nil {
		return fmt.Errorf("seeding chart of accounts: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger %q at %s (%d accounts added)\n", e.cfg.Ledger.Name, e.conn.Path(), added)
	return nil
}
