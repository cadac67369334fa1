package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
)

func newTxCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Record and inspect transactions",
	}
	cmd.AddCommand(
		newTxListCommand(a),
		newTxShowCommand(a),
		newTxAddCommand(a),
		newTxUpdateCommand(a),
		newTxDeleteCommand(a),
		newTxImportCommand(a),
		newTxExportCommand(a),
	)
	return cmd
}

// rangeFlags are the --from and --to date bounds shared by listing commands.
type rangeFlags struct {
	from, to string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "start date YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&f.to, "to", "", "end date YYYY-MM-DD (inclusive, default today)")
}

func (f *rangeFlags) parse() (model.DateRange, error) {
	var r model.DateRange
	var err error
	if r.Start, err = model.ParseDate(f.from); err != nil {
		return r, fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", f.from)
	}
	if r.End, err = model.ParseDate(f.to); err != nil {
		return r, fmt.Errorf("invalid --to %q: expected YYYY-MM-DD", f.to)
	}
	return r, nil
}

func newTxListCommand(a *app) *cobra.Command {
	var search string
	var page, pageSize int
	var rf rangeFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rf.parse()
			if err != nil {
				return err
			}
			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			result, err := e.ledger.List(cmd.Context(), model.TransactionFilter{Search: search, Range: r}, page, pageSize)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return printTransactions(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "match description")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "transactions per page (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	rf.register(cmd)
	return cmd
}

func printTransactions(w io.Writer, p model.Page[model.Transaction]) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tACCOUNT\tDEBIT\tCREDIT")
	for _, txn := range p.Items {
		for i, line := range txn.Lines {
			if i == 0 {
				fmt.Fprintf(tw, "%d\t%s\t%s\t", txn.ID, txn.Date.Format(model.DateFormat), txn.Description)
			} else {
				fmt.Fprint(tw, "\t\t\t")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", line.AccountName, money(line.Debit), money(line.Credit))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Page %d of %d (%d transactions)\n", p.Page, p.TotalPages, p.Total)
	return err
}

func newTxShowCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txnID, err := id.Parse(args[0])
			if err != nil {
				return err
			}
			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			txn, err := e.ledger.Get(cmd.Context(), txnID)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), txn)
			}
			return printTransaction(cmd.OutOrStdout(), txn)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func printTransaction(w io.Writer, txn model.Transaction) error {
	fmt.Fprintf(w, "Transaction %d  %s  %s\n", txn.ID, txn.Date.Format(model.DateFormat), txn.Description)
	tw := newTable(w)
	fmt.Fprintln(tw, "ACCOUNT\tDEBIT\tCREDIT")
	for _, line := range txn.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", line.AccountName, money(line.Debit), money(line.Credit))
	}
	debit, credit := txn.Totals()
	fmt.Fprintf(tw, "TOTAL\t%s\t%s\n", debit.StringFixed(2), credit.StringFixed(2))
	return tw.Flush()
}

// entryFlags collect a transaction from --date, --description, --debit and
// --credit. Line flags take ACCOUNT=AMOUNT where ACCOUNT is a name or ID.
type entryFlags struct {
	date, description string
	debits, credits   []string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "transaction date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&f.description, "description", "", "transaction description")
	cmd.Flags().StringArrayVar(&f.debits, "debit", nil, "debit line ACCOUNT=AMOUNT (repeatable)")
	cmd.Flags().StringArrayVar(&f.credits, "credit", nil, "credit line ACCOUNT=AMOUNT (repeatable)")
	_ = cmd.MarkFlagRequired("date")
}

func (f *entryFlags) input(ctx context.Context, e *env) (model.TransactionInput, error) {
	date, err := model.ParseDate(f.date)
	if err != nil {
		return model.TransactionInput{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", f.date)
	}
	resolve, err := accountResolver(ctx, e)
	if err != nil {
		return model.TransactionInput{}, err
	}

	in := model.TransactionInput{Date: date, Description: f.description}
	for _, arg := range f.debits {
		acct, amt, err := parseLineFlag(arg, resolve)
		if err != nil {
			return model.TransactionInput{}, fmt.Errorf("--debit %s: %w", arg, err)
		}
		in.Lines = append(in.Lines, model.LineInput{AccountID: acct, Debit: amt})
	}
	for _, arg := range f.credits {
		acct, amt, err := parseLineFlag(arg, resolve)
		if err != nil {
			return model.TransactionInput{}, fmt.Errorf("--credit %s: %w", arg, err)
		}
		in.Lines = append(in.Lines, model.LineInput{AccountID: acct, Credit: amt})
	}
	return in, nil
}

func parseLineFlag(arg string, resolve journal.AccountResolver) (int64, decimal.Decimal, error) {
	i := strings.LastIndex(arg, "=")
	if i <= 0 {
		return 0, decimal.Zero, errors.New("expected ACCOUNT=AMOUNT")
	}
	name := strings.TrimSpace(arg[:i])
	acct, ok := resolve(name)
	if !ok {
		return 0, decimal.Zero, fmt.Errorf("unknown account %q", name)
	}
	amt, err := decimal.NewFromString(strings.TrimSpace(arg[i+1:]))
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("invalid amount %q", arg[i+1:])
	}
	return acct, amt, nil
}

// accountResolver matches an account by exact name, then by ID.
func accountResolver(ctx context.Context, e *env) (journal.AccountResolver, error) {
	list, err := e.accounts.List(ctx, model.AccountFilter{})
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int64, len(list))
	byID := make(map[int64]bool, len(list))
	for _, acct := range list {
		byName[acct.Name] = acct.ID
		byID[acct.ID] = true
	}
	return func(name string) (int64, bool) {
		if n, ok := byName[name]; ok {
			return n, true
		}
		if n, err := id.Parse(name); err == nil && byID[n] {
			return n, true
		}
		return 0, false
	}, nil
}

func newTxAddCommand(a *app) *cobra.Command {
	var ef entryFlags

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Record a balanced transaction",
		Example: `  ledger tx add --date 2025-01-15 --description Sale --debit Cash=100 --credit "Sales Revenue=100"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			in, err := ef.input(cmd.Context(), e)
			if err != nil {
				return err
			}
			txnID, err := e.ledger.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded transaction %d\n", txnID)
			return nil
		},
	}

	ef.register(cmd)
	return cmd
}

func newTxUpdateCommand(a *app) *cobra.Command {
	var ef entryFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace a transaction's date, description and lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txnID, err := id.Parse(args[0])
			if err != nil {
				return err
			}
			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			in, err := ef.input(cmd.Context(), e)
			if err != nil {
				return err
			}
			if err := e.ledger.Update(cmd.Context(), txnID, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated transaction %d\n", txnID)
			return nil
		},
	}

	ef.register(cmd)
	return cmd
}

func newTxDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transaction and its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txnID, err := id.Parse(args[0])
			if err != nil {
				return err
			}
			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.ledger.Delete(cmd.Context(), txnID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted transaction %d\n", txnID)
			return nil
		},
	}
}

const txImportLong = `Import transactions from a CSV with the header

  ` + journal.Header + `

Rows sharing an entry value form one transaction. Accounts are matched by name or ID.`

func newTxImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import transactions from CSV; all entries are recorded or none",
		Long:  txImportLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			resolve, err := accountResolver(cmd.Context(), e)
			if err != nil {
				return err
			}
			entries, err := journal.ReadEntries(f, resolve)
			if err != nil {
				return err
			}
			ids, err := e.ledger.Import(cmd.Context(), entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions\n", len(ids))
			return nil
		},
	}
}

func newTxExportCommand(a *app) *cobra.Command {
	var out string
	var rf rangeFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV in the import format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rf.parse()
			if err != nil {
				return err
			}
			e, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			var all []model.Transaction
			filter := model.TransactionFilter{Range: r}
			for page := 1; ; page++ {
				p, err := e.ledger.List(cmd.Context(), filter, page, e.cfg.Pagination.MaxPageSize)
				if err != nil {
					return err
				}
				all = append(all, p.Items...)
				if page >= p.TotalPages {
					break
				}
			}
			return withOutput(cmd, out, func(w io.Writer) error {
				return journal.WriteEntries(w, all)
			})
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	rf.register(cmd)
	return cmd
}
