package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
)

func newAccountsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountsListCommand(a),
		newAccountsAddCommand(a),
		newAccountsUpdateCommand(a),
		newAccountsDeleteCommand(a),
		newAccountsImportCommand(a),
		newAccountsExportCommand(a),
	)
	return cmd
}

func parseTypeFlag(s string) (model.AccountType, error) {
	if s == "" {
		return "", nil
	}
	typ, ok := model.ParseAccountType(s)
	if !ok {
		return "", fmt.Errorf("invalid account type %q", s)
	}
	return typ, nil
}

func newAccountsListCommand(a *app) *cobra.Command {
	var search, typ string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts ordered by type and name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTypeFlag(typ)
			if err != nil {
				return err
			}
			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			list, err := e.accounts.List(cmd.Context(), model.AccountFilter{Search: search, Type: t})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			return printAccounts(cmd.OutOrStdout(), list)
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "match name or description")
	cmd.Flags().StringVar(&typ, "type", "", "filter by account type")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func printAccounts(w io.Writer, list []model.Account) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tDESCRIPTION")
	for _, acct := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", acct.ID, acct.Name, acct.Type, acct.Description)
	}
	return tw.Flush()
}

func newAccountsAddCommand(a *app) *cobra.Command {
	var typ, desc string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTypeFlag(typ)
			if err != nil {
				return err
			}
			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			acct, err := e.accounts.Create(cmd.Context(), model.AccountInput{Name: args[0], Type: t, Description: desc})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added account %d %s (%s)\n", acct.ID, acct.Name, acct.Type)
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "account type: Asset, Liability, Equity, Revenue or Expense (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&desc, "description", "", "account description")
	return cmd
}

func newAccountsUpdateCommand(a *app) *cobra.Command {
	var name, typ, desc string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Rename, reclassify or describe an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acctID, err := id.Parse(args[0])
			if err != nil {
				return err
			}
			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			current, err := e.accounts.Get(cmd.Context(), acctID)
			if err != nil {
				return err
			}
			in := model.AccountInput{Name: current.Name, Type: current.Type, Description: current.Description}
			if cmd.Flags().Changed("name") {
				in.Name = name
			}
			if cmd.Flags().Changed("type") {
				if in.Type, err = parseTypeFlag(typ); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("description") {
				in.Description = desc
			}

			acct, err := e.accounts.Update(cmd.Context(), acctID, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated account %d %s (%s)\n", acct.ID, acct.Name, acct.Type)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&typ, "type", "", "new account type")
	cmd.Flags().StringVar(&desc, "description", "", "new description")
	return cmd
}

func newAccountsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an account that no transaction uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acctID, err := id.Parse(args[0])
			if err != nil {
				return err
			}
			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.accounts.Delete(cmd.Context(), acctID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %d\n", acctID)
			return nil
		},
	}
}

func newAccountsImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a chart-of-accounts CSV, skipping names that already exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			chart, err := accounts.ReadAccounts(f)
			if err != nil {
				return err
			}

			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			added, err := e.accounts.Seed(cmd.Context(), chart)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d accounts\n", added, len(chart))
			return nil
		},
	}
}

func newAccountsExportCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the chart of accounts as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			list, err := e.accounts.List(cmd.Context(), model.AccountFilter{})
			if err != nil {
				return err
			}
			return withOutput(cmd, out, func(w io.Writer) error {
				return accounts.WriteAccounts(w, list)
			})
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// withOutput runs write against the named file, or stdout when path is empty.
func withOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
