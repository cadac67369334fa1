package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// Header is the CSV header for transaction import and export files.
const Header = "entry,date,description,account,debit,credit"

const (
	numFields = 6
	colEntry  = 0
	colDate   = 1
	colDesc   = 2
	colAcct   = 3
	colDebit  = 4
	colCredit = 5
)

// AccountResolver maps an account name to its ID.
type AccountResolver func(name string) (int64, bool)

// ReadEntries reads a transaction CSV and groups its rows into transaction
// inputs by the entry column, in order of first appearance. Date and
// description are taken from the first row of each entry.
func ReadEntries(r io.Reader, resolve AccountResolver) ([]model.TransactionInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var entries []model.TransactionInput
	index := make(map[string]int)
	for i, rec := range records[1:] {
		row := i + 2
		ref := strings.TrimSpace(rec[colEntry])
		if ref == "" {
			return nil, fmt.Errorf("row %d: entry is required", row)
		}
		line, err := unmarshalLine(rec, resolve)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		n, ok := index[ref]
		if !ok {
			date, err := model.ParseDate(strings.TrimSpace(rec[colDate]))
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing date %q: %w", row, rec[colDate], err)
			}
			entries = append(entries, model.TransactionInput{Date: date, Description: rec[colDesc]})
			n = len(entries) - 1
			index[ref] = n
		}
		entries[n].Lines = append(entries[n].Lines, line)
	}
	return entries, nil
}

func unmarshalLine(rec []string, resolve AccountResolver) (model.LineInput, error) {
	var line model.LineInput
	name := strings.TrimSpace(rec[colAcct])
	if name == "" {
		return line, errors.New("account is required")
	}
	id, ok := resolve(name)
	if !ok {
		return line, fmt.Errorf("unknown account %q", name)
	}
	line.AccountID = id

	var err error
	if line.Debit, err = parseAmount(rec[colDebit]); err != nil {
		return line, fmt.Errorf("parsing debit: %w", err)
	}
	if line.Credit, err = parseAmount(rec[colCredit]); err != nil {
		return line, fmt.Errorf("parsing credit: %w", err)
	}
	return line, nil
}

// parseAmount treats an empty cell as zero.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// WriteEntries writes transactions one row per line, including the header.
// The transaction ID is used as the entry reference.
func WriteEntries(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, txn := range txns {
		for _, line := range txn.Lines {
			if err := cw.Write(marshalLine(txn, line)); err != nil {
				return fmt.Errorf("writing transaction %d: %w", txn.ID, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func marshalLine(txn model.Transaction, line model.Line) []string {
	row := make([]string, numFields)
	row[colEntry] = fmt.Sprintf("%d", txn.ID)
	row[colDate] = txn.Date.Format(model.DateFormat)
	row[colDesc] = txn.Description
	row[colAcct] = line.AccountName
	if !line.Debit.IsZero() {
		row[colDebit] = line.Debit.StringFixed(2)
	}
	if !line.Credit.IsZero() {
		row[colCredit] = line.Credit.StringFixed(2)
	}
	return row
}
