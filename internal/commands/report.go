package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/model"
)

func newReportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate financial reports",
	}
	cmd.AddCommand(
		newReportSubcommand(a, model.ReportJournal, "Chronological listing of transaction lines"),
		newReportSubcommand(a, model.ReportBalanceSheet, "Asset, liability and equity balances as of --to"),
		newReportSubcommand(a, model.ReportIncomeStatement, "Revenue and expense activity between --from and --to"),
	)
	return cmd
}

func newReportSubcommand(a *app, kind model.ReportKind, short string) *cobra.Command {
	var rf rangeFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   kind.String(),
		Short: short,
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

			report, err := e.reports.Generate(cmd.Context(), kind, r)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}

	rf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func printReport(w io.Writer, report model.Report) error {
	switch r := report.(type) {
	case model.Journal:
		return printJournal(w, r)
	case model.BalanceSheet:
		return printBalanceSheet(w, r)
	case model.IncomeStatement:
		return printIncomeStatement(w, r)
	default:
		return fmt.Errorf("unsupported report %T", report)
	}
}

func printJournal(w io.Writer, j model.Journal) error {
	fmt.Fprintf(w, "Journal %s to %s\n\n", j.Start.Format(model.DateFormat), j.End.Format(model.DateFormat))
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tID\tDESCRIPTION\tACCOUNT\tDEBIT\tCREDIT")
	for _, entry := range model.GroupJournal(j.Rows) {
		for i, row := range entry.Rows {
			if i == 0 {
				fmt.Fprintf(tw, "%s\t%d\t%s\t", entry.Date.Format(model.DateFormat), entry.TransactionID, entry.Description)
			} else {
				fmt.Fprint(tw, "\t\t\t")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", row.AccountName, money(row.Debit), money(row.Credit))
		}
	}
	return tw.Flush()
}

func printBalanceSheet(w io.Writer, bs model.BalanceSheet) error {
	fmt.Fprintf(w, "Balance sheet as of %s\n\n", bs.AsOf.Format(model.DateFormat))
	tw := newTable(w)
	fmt.Fprintln(tw, "TYPE\tACCOUNT\tBALANCE")
	for _, row := range bs.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.AccountType, row.AccountName, row.DisplayBalance().StringFixed(2))
	}
	fmt.Fprintln(tw, "\t\t")
	fmt.Fprintf(tw, "\tTotal assets\t%s\n", bs.TotalAssets.StringFixed(2))
	fmt.Fprintf(tw, "\tTotal liabilities\t%s\n", bs.TotalLiabilities.StringFixed(2))
	fmt.Fprintf(tw, "\tTotal equity\t%s\n", bs.TotalEquity.StringFixed(2))
	fmt.Fprintf(tw, "\tRetained earnings\t%s\n", bs.RetainedEarnings.StringFixed(2))
	if err := tw.Flush(); err != nil {
		return err
	}
	if !bs.Balanced() {
		_, err := fmt.Fprintln(w, "\nWARNING: assets do not equal liabilities + equity + retained earnings")
		return err
	}
	return nil
}

func printIncomeStatement(w io.Writer, is model.IncomeStatement) error {
	fmt.Fprintf(w, "Income statement %s to %s\n\n", is.Start.Format(model.DateFormat), is.End.Format(model.DateFormat))
	tw := newTable(w)
	fmt.Fprintln(tw, "TYPE\tACCOUNT\tAMOUNT")
	for _, row := range is.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.AccountType, row.AccountName, row.DisplayAmount().StringFixed(2))
	}
	fmt.Fprintln(tw, "\t\t")
	fmt.Fprintf(tw, "\tTotal revenue\t%s\n", is.TotalRevenue.StringFixed(2))
	fmt.Fprintf(tw, "\tTotal expense\t%s\n", is.TotalExpense.StringFixed(2))
	fmt.Fprintf(tw, "\tNet income\t%s\n", is.NetIncome.StringFixed(2))
	return tw.Flush()
}
