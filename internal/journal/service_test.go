package journal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/db"
	"github.com/cleared-dev/ledger/internal/model"
)

type fixture struct {
	ledger  *Ledger
	conn    *db.Conn
	cash    int64
	revenue int64
	rent    int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "ledger.db"), db.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	reg := accounts.NewRegistry(conn, zerolog.Nop())
	f := fixture{
		ledger: NewLedger(conn, reg, zerolog.Nop(), Paging{DefaultPageSize: 20, MaxPageSize: 100}),
		conn:   conn,
	}
	for _, a := range []struct {
		id *int64
		in model.AccountInput
	}{
		{&f.cash, model.AccountInput{Name: "Cash", Type: model.AccountTypeAsset}},
		{&f.revenue, model.AccountInput{Name: "Revenue", Type: model.AccountTypeRevenue}},
		{&f.rent, model.AccountInput{Name: "Rent", Type: model.AccountTypeExpense}},
	} {
		created, err := reg.Create(context.Background(), a.in)
		require.NoError(t, err)
		*a.id = created.ID
	}
	return f
}

func (f fixture) sale(t *testing.T, date time.Time, desc, amount string) int64 {
	t.Helper()
	id, err := f.ledger.Create(context.Background(), model.TransactionInput{
		Date:        date,
		Description: desc,
		Lines:       []model.LineInput{debit(f.cash, amount), credit(f.revenue, amount)},
	})
	require.NoError(t, err)
	return id
}

func countRows(t *testing.T, conn *db.Conn, table string) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.sale(t, jan15, "Sale", "100.00")
	assert.NotZero(t, id)

	txn, err := f.ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Sale", txn.Description)
	assert.Equal(t, jan15, txn.Date)
	require.Len(t, txn.Lines, 2)

	assert.Equal(t, f.cash, txn.Lines[0].AccountID)
	assert.Equal(t, "Cash", txn.Lines[0].AccountName)
	assert.True(t, txn.Lines[0].Debit.Equal(dec("100")))
	assert.True(t, txn.Lines[0].Credit.IsZero())
	assert.Equal(t, "Revenue", txn.Lines[1].AccountName)
	assert.True(t, txn.Lines[1].Credit.Equal(dec("100")))

	d, c := txn.Totals()
	assert.True(t, model.WithinTolerance(d, c))
}

func TestCreateRejectsImbalance(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Create(context.Background(), entry(debit(f.cash, "100"), credit(f.revenue, "90")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrImbalance))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.Zero(t, countRows(t, f.conn, "transactions"))
	assert.Zero(t, countRows(t, f.conn, "transaction_lines"))
}

func TestCreateRejectsUnknownAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Create(context.Background(), entry(debit(f.cash, "10"), credit(999, "10")))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, apperr.Message(err), "unknown account 999")
	assert.Zero(t, countRows(t, f.conn, "transactions"))
}

func TestCreateRejectsAmountAboveMax(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Create(ctx, model.TransactionInput{
		Date:  jan15,
		Lines: []model.LineInput{debit(f.cash, "184467440737095517.16"), credit(f.revenue, "184467440737095517.16")},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, apperr.Message(err), "exceeds")
	assert.Equal(t, 0, countRows(t, f.conn, "transactions"))

	limit := model.MaxAmount.StringFixed(2)
	id := f.sale(t, jan15, "Largest sale", limit)
	txn, err := f.ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, limit, txn.Lines[0].Debit.StringFixed(2))
}

func TestCreateReportsUnknownAccountLine(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Create(context.Background(), model.TransactionInput{
		Date:  jan15,
		Lines: []model.LineInput{debit(f.cash, "10"), credit(9999, "10")},
	})
	require.Error(t, err)
	assert.Contains(t, apperr.Message(err), "line 2: unknown account 9999")
}

func TestCreateDropsZeroLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.ledger.Create(ctx, entry(debit(f.cash, "25"), model.LineInput{AccountID: f.rent}, credit(f.revenue, "25")))
	require.NoError(t, err)

	txn, err := f.ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, txn.Lines, 2)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.sale(t, jan15, "Sale", "100.00")

	feb1 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	err := f.ledger.Update(ctx, id, model.TransactionInput{
		Date:        feb1,
		Description: "Rent paid",
		Lines:       []model.LineInput{debit(f.rent, "40"), credit(f.cash, "40")},
	})
	require.NoError(t, err)

	txn, err := f.ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Rent paid", txn.Description)
	assert.Equal(t, feb1, txn.Date)
	require.Len(t, txn.Lines, 2)
	assert.Equal(t, "Rent", txn.Lines[0].AccountName)
	assert.Equal(t, 2, countRows(t, f.conn, "transaction_lines"))
}

func TestUpdateNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.ledger.Update(context.Background(), 42, entry(debit(f.cash, "1"), credit(f.revenue, "1")))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdateValidationLeavesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.sale(t, jan15, "Sale", "100.00")

	err := f.ledger.Update(ctx, id, entry(debit(f.cash, "100"), credit(f.revenue, "90")))
	assert.True(t, errors.Is(err, apperr.ErrImbalance))

	txn, err := f.ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Sale", txn.Description)
	assert.Len(t, txn.Lines, 2)
}

func TestUpdateIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.sale(t, jan15, "Sale", "100.00")

	// Fail the second line insert, after the prior lines were deleted.
	_, err := f.conn.ExecContext(ctx, `CREATE TRIGGER fail_line BEFORE INSERT ON transaction_lines
		WHEN NEW.debit_cents = 4242 BEGIN SELECT RAISE(ABORT, 'injected'); END`)
	require.NoError(t, err)

	err = f.ledger.Update(ctx, id, model.TransactionInput{
		Date:        jan15,
		Description: "Changed",
		Lines:       []model.LineInput{credit(f.revenue, "42.42"), debit(f.cash, "42.42")},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
	assert.Equal(t, "internal store failure", apperr.Message(err))

	txn, err := f.ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Sale", txn.Description)
	require.Len(t, txn.Lines, 2)
	assert.True(t, txn.Lines[0].Debit.Equal(dec("100")))
	assert.True(t, txn.Lines[1].Credit.Equal(dec("100")))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.sale(t, jan15, "Sale", "10")

	require.NoError(t, f.ledger.Delete(ctx, id))
	assert.Zero(t, countRows(t, f.conn, "transaction_lines"), "lines cascade")

	_, err := f.ledger.Get(ctx, id)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = f.ledger.Delete(ctx, id)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Get(context.Background(), 7)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "transaction 7 not found", apperr.Message(err))
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		f.sale(t, jan15.AddDate(0, 0, i), fmt.Sprintf("Sale %02d", i+1), "10")
	}

	page, err := f.ledger.List(ctx, model.TransactionFilter{}, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 15, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, "Sale 05", page.Items[0].Description)
	assert.Equal(t, "Sale 01", page.Items[4].Description)
	for _, txn := range page.Items {
		assert.Len(t, txn.Lines, 2)
	}

	page, err = f.ledger.List(ctx, model.TransactionFilter{}, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestListPageBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sale(t, jan15, "Sale", "10")

	page, err := f.ledger.List(ctx, model.TransactionFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	page, err = f.ledger.List(ctx, model.TransactionFilter{}, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize)

	for _, p := range []int{2, math.MaxInt / 10, math.MaxInt} {
		page, err = f.ledger.List(ctx, model.TransactionFilter{}, p, 10)
		require.NoError(t, err)
		assert.Empty(t, page.Items, "page %d is past the end", p)
		assert.Equal(t, p, page.Page)
		assert.Equal(t, 1, page.Total)
	}
}

func TestListOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.sale(t, jan15, "first", "10")
	older := f.sale(t, jan15.AddDate(0, 0, -1), "older", "10")
	second := f.sale(t, jan15, "second", "10")

	page, err := f.ledger.List(ctx, model.TransactionFilter{}, 1, 10)
	require.NoError(t, err)
	var ids []int64
	for _, txn := range page.Items {
		ids = append(ids, txn.ID)
	}
	assert.Equal(t, []int64{second, first, older}, ids)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sale(t, jan15, "Coffee beans", "10")
	f.sale(t, jan15.AddDate(0, 0, 10), "COFFEE machine", "10")
	f.sale(t, jan15.AddDate(0, 0, 20), "Tea", "10")
	f.sale(t, jan15, "50% off_sale", "10")

	tests := []struct {
		name   string
		filter model.TransactionFilter
		want   int
	}{
		{"all", model.TransactionFilter{}, 4},
		{"search is case-insensitive", model.TransactionFilter{Search: "coffee"}, 2},
		{"percent is literal", model.TransactionFilter{Search: "%"}, 1},
		{"underscore is literal", model.TransactionFilter{Search: "f_s"}, 1},
		{"start bound inclusive", model.TransactionFilter{Range: model.DateRange{Start: jan15.AddDate(0, 0, 10)}}, 2},
		{"end bound inclusive", model.TransactionFilter{Range: model.DateRange{End: jan15}}, 2},
		{"search and range", model.TransactionFilter{Search: "coffee", Range: model.DateRange{Start: jan15.AddDate(0, 0, 1)}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.ledger.List(ctx, tt.filter, 1, 50)
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Total)
			assert.Len(t, page.Items, tt.want)
		})
	}
}

func TestImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids, err := f.ledger.Import(ctx, []model.TransactionInput{
		entry(debit(f.cash, "10"), credit(f.revenue, "10")),
		entry(debit(f.rent, "4"), credit(f.cash, "4")),
	})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, 2, countRows(t, f.conn, "transactions"))
}

func TestImportIsAllOrNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Import(context.Background(), []model.TransactionInput{
		entry(debit(f.cash, "10"), credit(f.revenue, "10")),
		entry(debit(f.rent, "4"), credit(f.cash, "3")),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrImbalance))
	assert.Contains(t, apperr.Message(err), "entry 2:")
	assert.Zero(t, countRows(t, f.conn, "transactions"))
}

func TestReferencedAccountCannotBeDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sale(t, jan15, "Sale", "10")

	reg := accounts.NewRegistry(f.conn, zerolog.Nop())
	err := reg.Delete(ctx, f.cash)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	require.NoError(t, reg.Delete(ctx, f.rent))
	all, err := reg.List(ctx, model.AccountFilter{})
	require.NoError(t, err)
	for _, a := range all {
		assert.NotEqual(t, f.rent, a.ID)
	}
}
