// Package journal records balanced double-entry transactions.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/db"
	"github.com/cleared-dev/ledger/internal/model"
)

// Paging bounds transaction listings.
type Paging struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Ledger is the only writer of transactions and their lines.
type Ledger struct {
	conn     *db.Conn
	accounts AccountChecker
	log      zerolog.Logger
	paging   Paging
}

// NewLedger creates a Ledger. Zero paging values fall back to 20 and 100.
func NewLedger(conn *db.Conn, accounts AccountChecker, log zerolog.Logger, paging Paging) *Ledger {
	if paging.DefaultPageSize <= 0 {
		paging.DefaultPageSize = 20
	}
	if paging.MaxPageSize < paging.DefaultPageSize {
		paging.MaxPageSize = max(100, paging.DefaultPageSize)
	}
	return &Ledger{
		conn:     conn,
		accounts: accounts,
		log:      log.With().Str("component", "journal").Logger(),
		paging:   paging,
	}
}

// Create validates and records a transaction with all of its lines as one
// atomic unit. Returns the new transaction ID.
func (l *Ledger) Create(ctx context.Context, in model.TransactionInput) (int64, error) {
	const op = "journal.Create"
	lines, err := l.validate(ctx, op, in)
	if err != nil {
		return 0, err
	}

	// The unit of work runs to commit or rollback even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	var id int64
	err = l.conn.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (transaction_date, description) VALUES (?, ?)`,
			in.Date.Format(model.DateFormat), strings.TrimSpace(in.Description))
		if err != nil {
			return fmt.Errorf("inserting transaction: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading transaction id: %w", err)
		}
		return insertLines(ctx, tx, id, lines)
	})
	if err != nil {
		return 0, l.writeErr(op, 0, err)
	}

	l.log.Info().Int64("transaction_id", id).Int("lines", len(lines)).Msg("transaction created")
	return id, nil
}

// Update replaces a transaction's header and its entire line set atomically.
// If any statement fails, the prior lines are left untouched.
func (l *Ledger) Update(ctx context.Context, id int64, in model.TransactionInput) error {
	const op = "journal.Update"
	lines, err := l.validate(ctx, op, in)
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	err = l.conn.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET transaction_date = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			in.Date.Format(model.DateFormat), strings.TrimSpace(in.Description), id)
		if err != nil {
			return fmt.Errorf("updating transaction: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		}
		if n == 0 {
			return apperr.NotFound(op, "transaction", id)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_lines WHERE transaction_id = ?`, id); err != nil {
			return fmt.Errorf("deleting lines: %w", err)
		}
		return insertLines(ctx, tx, id, lines)
	})
	if err != nil {
		return l.writeErr(op, id, err)
	}

	l.log.Info().Int64("transaction_id", id).Int("lines", len(lines)).Msg("transaction updated")
	return nil
}

// Delete removes a transaction and, by cascade, its lines.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	const op = "journal.Delete"
	res, err := l.conn.ExecContext(context.WithoutCancel(ctx), `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return l.writeErr(op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return l.writeErr(op, id, err)
	}
	if n == 0 {
		return apperr.NotFound(op, "transaction", id)
	}

	l.log.Info().Int64("transaction_id", id).Msg("transaction deleted")
	return nil
}

// Import validates every entry first and then records them all in a single
// atomic unit. Returns the new IDs in input order.
func (l *Ledger) Import(ctx context.Context, entries []model.TransactionInput) ([]int64, error) {
	const op = "journal.Import"
	prepared := make([][]model.LineInput, len(entries))
	for i, in := range entries {
		lines, err := l.validate(ctx, op, in)
		if err != nil {
			var ae *apperr.Error
			if errors.As(err, &ae) && ae.Kind == apperr.KindValidation {
				ae.Message = fmt.Sprintf("entry %d: %s", i+1, ae.Message)
			}
			return nil, err
		}
		prepared[i] = lines
	}

	ctx = context.WithoutCancel(ctx)
	ids := make([]int64, len(entries))
	err := l.conn.Transaction(ctx, func(tx *sql.Tx) error {
		for i, in := range entries {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO transactions (transaction_date, description) VALUES (?, ?)`,
				in.Date.Format(model.DateFormat), strings.TrimSpace(in.Description))
			if err != nil {
				return fmt.Errorf("inserting entry %d: %w", i+1, err)
			}
			if ids[i], err = res.LastInsertId(); err != nil {
				return err
			}
			if err := insertLines(ctx, tx, ids[i], prepared[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, l.writeErr(op, 0, err)
	}

	l.log.Info().Int("transactions", len(ids)).Msg("transactions imported")
	return ids, nil
}

const selectHeader = `SELECT t.id, t.transaction_date, t.description, t.created_at, t.updated_at FROM transactions t`

// Get returns a transaction with its lines.
func (l *Ledger) Get(ctx context.Context, id int64) (model.Transaction, error) {
	const op = "journal.Get"
	txn, err := scanHeader(l.conn.QueryRowContext(ctx, selectHeader+" WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, apperr.NotFound(op, "transaction", id)
	}
	if err != nil {
		return model.Transaction{}, l.storeErr(op, id, err)
	}

	lines, err := loadLines(ctx, l.conn, []int64{id})
	if err != nil {
		return model.Transaction{}, l.storeErr(op, id, err)
	}
	txn.Lines = lines[id]
	return txn, nil
}

// listWhere translates a filter into parameterized predicates.
func listWhere(f model.TransactionFilter) *db.Where {
	w := &db.Where{}
	w.Contains(strings.TrimSpace(f.Search), "t.description")
	if !f.Range.Start.IsZero() {
		w.And("t.transaction_date >= ?", f.Range.Start.Format(model.DateFormat))
	}
	if !f.Range.End.IsZero() {
		w.And("t.transaction_date <= ?", f.Range.End.Format(model.DateFormat))
	}
	return w
}

// List returns one page of transactions, newest first, each with its lines.
func (l *Ledger) List(ctx context.Context, f model.TransactionFilter, page, pageSize int) (model.Page[model.Transaction], error) {
	const op = "journal.List"
	page, pageSize = l.normalizePage(page, pageSize)
	w := listWhere(f)

	var total int
	if err := l.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions t`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return model.Page[model.Transaction]{}, l.storeErr(op, 0, err)
	}

	if total == 0 || page > (total+pageSize-1)/pageSize {
		return model.NewPage([]model.Transaction(nil), page, pageSize, total), nil
	}

	query := selectHeader + w.SQL() + ` ORDER BY t.transaction_date DESC, t.id DESC LIMIT ? OFFSET ?`
	args := append(w.Args(), pageSize, (page-1)*pageSize)
	rows, err := l.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return model.Page[model.Transaction]{}, l.storeErr(op, 0, err)
	}
	defer rows.Close()

	var items []model.Transaction
	var ids []int64
	for rows.Next() {
		txn, err := scanHeader(rows)
		if err != nil {
			return model.Page[model.Transaction]{}, l.storeErr(op, 0, err)
		}
		items = append(items, txn)
		ids = append(ids, txn.ID)
	}
	if err := rows.Err(); err != nil {
		return model.Page[model.Transaction]{}, l.storeErr(op, 0, err)
	}

	lines, err := loadLines(ctx, l.conn, ids)
	if err != nil {
		return model.Page[model.Transaction]{}, l.storeErr(op, 0, err)
	}
	for i := range items {
		items[i].Lines = lines[items[i].ID]
	}
	return model.NewPage(items, page, pageSize, total), nil
}

func (l *Ledger) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = l.paging.DefaultPageSize
	}
	if pageSize > l.paging.MaxPageSize {
		pageSize = l.paging.MaxPageSize
	}
	return page, pageSize
}

// validate runs the pure line checks and then the account lookups. Nothing
// is written unless both pass.
func (l *Ledger) validate(ctx context.Context, op string, in model.TransactionInput) ([]model.LineInput, error) {
	lines, errs := ValidateTransaction(in)
	if len(errs) > 0 {
		return nil, validationError(op, errs)
	}
	errs, err := CheckAccounts(ctx, l.accounts, in.Lines)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, validationError(op, errs)
	}
	return lines, nil
}

// writeErr classifies a failed unit of work. The store has already rolled it back.
func (l *Ledger) writeErr(op string, id int64, err error) error {
	switch {
	case apperr.KindOf(err) != apperr.KindInternal:
		return err
	case db.IsForeignKeyViolation(err):
		return apperr.Validation(op, "transaction references an account that no longer exists")
	default:
		return l.storeErr(op, id, err)
	}
}

func (l *Ledger) storeErr(op string, id int64, err error) error {
	ev := l.log.Error().Err(err).Str("op", op)
	if id != 0 {
		ev = ev.Int64("transaction_id", id)
	}
	ev.Msg("store failure")
	return apperr.Store(op, err)
}

func insertLines(ctx context.Context, tx *sql.Tx, txnID int64, lines []model.LineInput) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transaction_lines (transaction_id, account_id, debit_cents, credit_cents) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing line insert: %w", err)
	}
	defer stmt.Close()

	for i, line := range lines {
		if _, err := stmt.ExecContext(ctx, txnID, line.AccountID, model.Cents(line.Debit), model.Cents(line.Credit)); err != nil {
			return fmt.Errorf("inserting line %d: %w", i+1, err)
		}
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// loadLines returns the lines of the given transactions keyed by transaction
// ID, each slice in insertion order.
func loadLines(ctx context.Context, q querier, txnIDs []int64) (map[int64][]model.Line, error) {
	out := make(map[int64][]model.Line, len(txnIDs))
	if len(txnIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(txnIDs))
	for i, id := range txnIDs {
		args[i] = id
	}
	query := `SELECT l.id, l.transaction_id, l.account_id, a.name, l.debit_cents, l.credit_cents
		FROM transaction_lines l
		JOIN accounts a ON a.id = l.account_id
		WHERE l.transaction_id IN (` + db.Placeholders(len(txnIDs)) + `)
		ORDER BY l.transaction_id, l.id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line model.Line
		var txnID, debit, credit int64
		if err := rows.Scan(&line.ID, &txnID, &line.AccountID, &line.AccountName, &debit, &credit); err != nil {
			return nil, fmt.Errorf("scanning line: %w", err)
		}
		line.Debit = model.FromCents(debit)
		line.Credit = model.FromCents(credit)
		out[txnID] = append(out[txnID], line)
	}
	return out, rows.Err()
}

func scanHeader(s interface{ Scan(dest ...any) error }) (model.Transaction, error) {
	var txn model.Transaction
	var date string
	if err := s.Scan(&txn.ID, &date, &txn.Description, &txn.CreatedAt, &txn.UpdatedAt); err != nil {
		return model.Transaction{}, err
	}
	d, err := time.Parse(model.DateFormat, date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing transaction date %q: %w", date, err)
	}
	txn.Date = d
	return txn, nil
}
