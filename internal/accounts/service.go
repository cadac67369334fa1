// Package accounts owns the chart of accounts.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/db"
	"github.com/cleared-dev/ledger/internal/model"
)

// Registry provides create, rename, classify and delete over the chart of accounts.
type Registry struct {
	conn *db.Conn
	log  zerolog.Logger
}

// NewRegistry creates a Registry backed by conn.
func NewRegistry(conn *db.Conn, log zerolog.Logger) *Registry {
	return &Registry{conn: conn, log: log.With().Str("component", "accounts").Logger()}
}

const selectAccount = `SELECT id, name, type, description, created_at FROM accounts`

// listQuery translates a filter into a parameterized query.
func listQuery(f model.AccountFilter) (string, []any) {
	var w db.Where
	w.Contains(strings.TrimSpace(f.Search), "name", "description")
	if f.Type != "" {
		w.And("type = ?", string(f.Type))
	}
	return selectAccount + w.SQL() + " ORDER BY type, name", w.Args()
}

// List returns accounts matching f, sorted by type then name.
func (r *Registry) List(ctx context.Context, f model.AccountFilter) ([]model.Account, error) {
	const op = "accounts.List"
	query, args := listQuery(f)

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.storeErr(op, 0, err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, r.storeErr(op, 0, err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, r.storeErr(op, 0, err)
	}
	return accounts, nil
}

// Get returns an account by ID.
func (r *Registry) Get(ctx context.Context, id int64) (model.Account, error) {
	const op = "accounts.Get"
	a, err := scanAccount(r.conn.QueryRowContext(ctx, selectAccount+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, apperr.NotFound(op, "account", id)
	}
	if err != nil {
		return model.Account{}, r.storeErr(op, id, err)
	}
	return a, nil
}

// Exists reports whether an account ID exists.
func (r *Registry) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, r.storeErr("accounts.Exists", id, err)
	}
	return n > 0, nil
}

// Create adds an account. Names are unique.
func (r *Registry) Create(ctx context.Context, in model.AccountInput) (model.Account, error) {
	const op = "accounts.Create"
	in, err := validateInput(op, in)
	if err != nil {
		return model.Account{}, err
	}

	taken, err := r.nameTaken(ctx, in.Name, 0)
	if err != nil {
		return model.Account{}, r.storeErr(op, 0, err)
	}
	if taken {
		return model.Account{}, apperr.Conflict(op, "account name %q already exists", in.Name)
	}

	res, err := r.conn.ExecContext(ctx,
		`INSERT INTO accounts (name, type, description) VALUES (?, ?, ?)`,
		in.Name, string(in.Type), in.Description)
	if db.IsUniqueViolation(err) {
		return model.Account{}, apperr.Conflict(op, "account name %q already exists", in.Name)
	}
	if err != nil {
		return model.Account{}, r.storeErr(op, 0, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Account{}, r.storeErr(op, 0, err)
	}
	r.log.Info().Int64("account_id", id).Str("name", in.Name).Str("type", string(in.Type)).Msg("account created")
	return r.Get(ctx, id)
}

// Update renames, reclassifies or redescribes an account.
func (r *Registry) Update(ctx context.Context, id int64, in model.AccountInput) (model.Account, error) {
	const op = "accounts.Update"
	in, err := validateInput(op, in)
	if err != nil {
		return model.Account{}, err
	}

	taken, err := r.nameTaken(ctx, in.Name, id)
	if err != nil {
		return model.Account{}, r.storeErr(op, id, err)
	}
	if taken {
		return model.Account{}, apperr.Conflict(op, "account name %q already exists", in.Name)
	}

	res, err := r.conn.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, description = ? WHERE id = ?`,
		in.Name, string(in.Type), in.Description, id)
	if db.IsUniqueViolation(err) {
		return model.Account{}, apperr.Conflict(op, "account name %q already exists", in.Name)
	}
	if err != nil {
		return model.Account{}, r.storeErr(op, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return model.Account{}, r.storeErr(op, id, err)
	}
	if n == 0 {
		return model.Account{}, apperr.NotFound(op, "account", id)
	}
	return r.Get(ctx, id)
}

// Delete removes an account that no transaction line references.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	const op = "accounts.Delete"
	ctx = context.WithoutCancel(ctx)
	err := r.conn.Transaction(ctx, func(tx *sql.Tx) error {
		var used int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transaction_lines WHERE account_id = ?`, id).Scan(&used); err != nil {
			return err
		}
		if used > 0 {
			return apperr.Conflict(op, "account %d is used by %d transaction lines", id, used)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound(op, "account", id)
		}
		return nil
	})

	switch {
	case err == nil:
		r.log.Info().Int64("account_id", id).Msg("account deleted")
		return nil
	case apperr.KindOf(err) != apperr.KindInternal:
		return err
	case db.IsForeignKeyViolation(err):
		return apperr.Conflict(op, "account %d is used by transaction lines", id)
	default:
		return r.storeErr(op, id, err)
	}
}

// Seed inserts accounts in one atomic unit, skipping names that already
// exist. It returns the number of accounts inserted.
func (r *Registry) Seed(ctx context.Context, accounts []model.Account) (int, error) {
	const op = "accounts.Seed"
	for i, a := range accounts {
		in, err := validateInput(op, model.AccountInput{Name: a.Name, Type: a.Type, Description: a.Description})
		if err != nil {
			return 0, err
		}
		accounts[i].Name = in.Name
		accounts[i].Description = in.Description
	}

	inserted := 0
	ctx = context.WithoutCancel(ctx)
	err := r.conn.Transaction(ctx, func(tx *sql.Tx) error {
		for _, a := range accounts {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO accounts (name, type, description) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING`,
				a.Name, string(a.Type), a.Description)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, r.storeErr(op, 0, err)
	}
	return inserted, nil
}

func (r *Registry) nameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	var n int
	err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE name = ? AND id != ?`, name, exceptID).Scan(&n)
	return n > 0, err
}

func (r *Registry) storeErr(op string, id int64, err error) error {
	ev := r.log.Error().Err(err).Str("op", op)
	if id != 0 {
		ev = ev.Int64("account_id", id)
	}
	ev.Msg("store failure")
	return apperr.Store(op, err)
}

func validateInput(op string, in model.AccountInput) (model.AccountInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Name == "" && in.Type == "":
		return in, apperr.Validation(op, "account name and type are required")
	case in.Name == "":
		return in, apperr.Validation(op, "account name is required")
	case in.Type == "":
		return in, apperr.Validation(op, "account type is required")
	case !in.Type.Valid():
		return in, apperr.Validation(op, "invalid account type %q", in.Type)
	}
	return in, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (model.Account, error) {
	var a model.Account
	var typ string
	if err := s.Scan(&a.ID, &a.Name, &typ, &a.Description, &a.CreatedAt); err != nil {
		return model.Account{}, err
	}
	a.Type = model.AccountType(typ)
	return a, nil
}
