package accounts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/ledger/internal/model"
)

// Header lists the chart-of-accounts CSV columns in export order.
var Header = []string{"account_id", "account_name", "account_type", "description"}

// columns maps header names to record positions. Optional columns are -1
// when absent.
type columns struct {
	id, name, typ, desc int
}

func parseHeader(rec []string) (columns, error) {
	c := columns{id: -1, name: -1, typ: -1, desc: -1}
	for i, h := range rec {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "account_id", "id":
			c.id = i
		case "account_name", "name":
			c.name = i
		case "account_type", "type":
			c.typ = i
		case "description":
			c.desc = i
		}
	}
	if c.name < 0 || c.typ < 0 {
		return c, errors.New("header must include account_name and account_type")
	}
	return c, nil
}

func (c columns) account(rec []string) (model.Account, error) {
	var acct model.Account
	if c.id >= 0 && strings.TrimSpace(rec[c.id]) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(rec[c.id]), 10, 64)
		if err != nil {
			return acct, fmt.Errorf("parsing account_id %q: %w", rec[c.id], err)
		}
		acct.ID = n
	}

	typ, ok := model.ParseAccountType(strings.TrimSpace(rec[c.typ]))
	if !ok {
		return acct, fmt.Errorf("unknown account_type %q", rec[c.typ])
	}
	acct.Type = typ
	acct.Name = rec[c.name]
	if c.desc >= 0 {
		acct.Description = rec[c.desc]
	}
	return acct, nil
}

// ReadAccounts reads a chart-of-accounts CSV. Columns are matched by header
// name in any order; account_id and description are optional and the type
// is matched case-insensitively. IDs are informational: the store assigns
// its own on import.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols, err := parseHeader(records[0])
	if err != nil {
		return nil, err
	}

	accounts := make([]model.Account, 0, len(records)-1)
	for i, rec := range records[1:] {
		acct, err := cols.account(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes a chart-of-accounts CSV with Header.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, acct := range accounts {
		row := []string{strconv.FormatInt(acct.ID, 10), acct.Name, string(acct.Type), acct.Description}
		if acct.ID == 0 {
			row[0] = ""
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing account %q: %w", acct.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
