package accounts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/db"
	"github.com/cleared-dev/ledger/internal/model"
)

func newTestRegistry(t *testing.T) (*Registry, *db.Conn) {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "ledger.db"), db.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewRegistry(conn, zerolog.Nop()), conn
}

func mustCreate(t *testing.T, r *Registry, name string, typ model.AccountType, desc string) model.Account {
	t.Helper()
	a, err := r.Create(context.Background(), model.AccountInput{Name: name, Type: typ, Description: desc})
	require.NoError(t, err)
	return a
}

// postLine writes a transaction with a single line against accountID.
func postLine(t *testing.T, conn *db.Conn, accountID int64) {
	t.Helper()
	ctx := context.Background()
	res, err := conn.ExecContext(ctx, `INSERT INTO transactions (transaction_date, description) VALUES ('2024-01-01', 'fixture')`)
	require.NoError(t, err)
	txnID, err := res.LastInsertId()
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO transaction_lines (transaction_id, account_id, debit_cents) VALUES (?, ?, 100)`, txnID, accountID)
	require.NoError(t, err)
}

func TestCreate(t *testing.T) {
	r, _ := newTestRegistry(t)

	a, err := r.Create(context.Background(), model.AccountInput{Name: "  Cash ", Type: model.AccountTypeAsset, Description: "Till"})
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, "Cash", a.Name, "name is trimmed")
	assert.Equal(t, model.AccountTypeAsset, a.Type)
	assert.Equal(t, "Till", a.Description)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestCreateValidation(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   model.AccountInput
		want string
	}{
		{"missing both", model.AccountInput{}, "name and type are required"},
		{"missing name", model.AccountInput{Name: "  ", Type: model.AccountTypeAsset}, "name is required"},
		{"missing type", model.AccountInput{Name: "Cash"}, "type is required"},
		{"invalid type", model.AccountInput{Name: "Cash", Type: "Income"}, "invalid account type"},
		{"lowercase type", model.AccountInput{Name: "Cash", Type: "asset"}, "invalid account type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Create(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Contains(t, apperr.Message(err), tt.want)
		})
	}

	all, err := r.List(ctx, model.AccountFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateDuplicateName(t *testing.T) {
	r, _ := newTestRegistry(t)
	mustCreate(t, r, "Cash", model.AccountTypeAsset, "")

	_, err := r.Create(context.Background(), model.AccountInput{Name: "Cash", Type: model.AccountTypeExpense})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Uniqueness is case-sensitive.
	_, err = r.Create(context.Background(), model.AccountInput{Name: "cash", Type: model.AccountTypeAsset})
	require.NoError(t, err)
}

func TestListOrderAndFilters(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	mustCreate(t, r, "Sales", model.AccountTypeRevenue, "Product sales")
	mustCreate(t, r, "Cash", model.AccountTypeAsset, "")
	mustCreate(t, r, "Bank", model.AccountTypeAsset, "Main cash account")
	mustCreate(t, r, "Loan", model.AccountTypeLiability, "")
	mustCreate(t, r, "Rent", model.AccountTypeExpense, "")

	all, err := r.List(ctx, model.AccountFilter{})
	require.NoError(t, err)
	var names []string
	for _, a := range all {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Bank", "Cash", "Rent", "Loan", "Sales"}, names, "sorted by type then name")

	byName, err := r.List(ctx, model.AccountFilter{Search: "CASH"})
	require.NoError(t, err)
	require.Len(t, byName, 2, "matches name or description, case-insensitive")
	assert.Equal(t, "Bank", byName[0].Name)
	assert.Equal(t, "Cash", byName[1].Name)

	assets, err := r.List(ctx, model.AccountFilter{Type: model.AccountTypeAsset, Search: "bank"})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "Bank", assets[0].Name)

	none, err := r.List(ctx, model.AccountFilter{Search: "%"})
	require.NoError(t, err)
	assert.Empty(t, none, "LIKE wildcards are matched literally")
}

func TestListSearchUnicode(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	mustCreate(t, r, "ÉPARGNE", model.AccountTypeAsset, "")
	mustCreate(t, r, "Cash", model.AccountTypeAsset, "Caisse générale")

	for _, term := range []string{"épargne", "ÉPARGNE", "Épar"} {
		found, err := r.List(ctx, model.AccountFilter{Search: term})
		require.NoError(t, err)
		require.Len(t, found, 1, "search %q", term)
		assert.Equal(t, "ÉPARGNE", found[0].Name)
	}

	found, err := r.List(ctx, model.AccountFilter{Search: "GÉNÉRALE"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Cash", found[0].Name)
}

func TestListQuery(t *testing.T) {
	query, args := listQuery(model.AccountFilter{Search: "cash", Type: model.AccountTypeAsset})
	assert.Contains(t, query, "ulower(COALESCE(name, '')) LIKE ?")
	assert.Contains(t, query, "type = ?")
	assert.Contains(t, query, "ORDER BY type, name")
	assert.Equal(t, []any{"%cash%", "%cash%", "Asset"}, args)

	query, args = listQuery(model.AccountFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestGet(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	cash := mustCreate(t, r, "Cash", model.AccountTypeAsset, "")

	got, err := r.Get(ctx, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cash", got.Name)

	_, err = r.Get(ctx, 9999)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	ok, err := r.Exists(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Exists(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	cash := mustCreate(t, r, "Cash", model.AccountTypeAsset, "")

	got, err := r.Update(ctx, cash.ID, model.AccountInput{Name: "Petty Cash", Type: model.AccountTypeAsset, Description: "Drawer"})
	require.NoError(t, err)
	assert.Equal(t, cash.ID, got.ID)
	assert.Equal(t, "Petty Cash", got.Name)
	assert.Equal(t, "Drawer", got.Description)

	// Keeping the same name is not a conflict with itself.
	_, err = r.Update(ctx, cash.ID, model.AccountInput{Name: "Petty Cash", Type: model.AccountTypeAsset})
	require.NoError(t, err)
}

func TestUpdateErrors(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	cash := mustCreate(t, r, "Cash", model.AccountTypeAsset, "")
	mustCreate(t, r, "Bank", model.AccountTypeAsset, "")

	_, err := r.Update(ctx, cash.ID, model.AccountInput{Name: "Bank", Type: model.AccountTypeAsset})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = r.Update(ctx, 9999, model.AccountInput{Name: "Ghost", Type: model.AccountTypeAsset})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = r.Update(ctx, cash.ID, model.AccountInput{Name: "Cash", Type: "Cashish"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "type is validated on update too")
}

func TestUpdateReclassifyInUse(t *testing.T) {
	r, conn := newTestRegistry(t)
	ctx := context.Background()
	acct := mustCreate(t, r, "Deposits", model.AccountTypeAsset, "")
	postLine(t, conn, acct.ID)

	got, err := r.Update(ctx, acct.ID, model.AccountInput{Name: "Deposits", Type: model.AccountTypeLiability})
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeLiability, got.Type)
}

func TestDelete(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	cash := mustCreate(t, r, "Cash", model.AccountTypeAsset, "")

	require.NoError(t, r.Delete(ctx, cash.ID))

	all, err := r.List(ctx, model.AccountFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	err = r.Delete(ctx, cash.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteInUse(t *testing.T) {
	r, conn := newTestRegistry(t)
	ctx := context.Background()
	cash := mustCreate(t, r, "Cash", model.AccountTypeAsset, "")
	postLine(t, conn, cash.ID)

	err := r.Delete(ctx, cash.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = r.Get(ctx, cash.ID)
	require.NoError(t, err, "account must survive a rejected delete")
}

func TestSeed(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	mustCreate(t, r, "Cash", model.AccountTypeAsset, "existing")

	chart := DefaultChart("small_business")
	n, err := r.Seed(ctx, chart)
	require.NoError(t, err)
	assert.Equal(t, len(chart)-1, n, "existing Cash is skipped")

	all, err := r.List(ctx, model.AccountFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(chart))

	n, err = r.Seed(ctx, chart)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding twice is a no-op")
}

func TestSeedValidatesBeforeWriting(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Seed(ctx, []model.Account{
		{Name: "Cash", Type: model.AccountTypeAsset},
		{Name: "Bad", Type: "Nope"},
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	all, err := r.List(ctx, model.AccountFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}
