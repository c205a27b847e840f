package invoice_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/travel-checkout/internal/invoice"
)

// fakeRow scans a fixed list of values into the destinations in order.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, v := range r.values {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

type fakeRows struct {
	rows   [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.pos-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return fakeRow{values: r.rows[r.pos-1]}.Scan(dest...)
}

type fakeDB struct {
	row      fakeRow
	rows     *fakeRows
	queryErr error
	tag      pgconn.CommandTag
	execErr  error
	lastArgs []any
}

func (db *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	db.lastArgs = args
	return db.row
}

func (db *fakeDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	if db.queryErr != nil {
		return nil, db.queryErr
	}
	return db.rows, nil
}

func (db *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	db.lastArgs = args
	return db.tag, db.execErr
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func invoiceRow(status int) []any {
	return []any{
		int64(42), "INV-0042", day(2024, 5, 1), day(2024, 5, 15), "150.00", status, "",
		int64(7), "ORD-0007",
		int64(3), "Nimal Perera", "nimal@example.com", "+94 77 123 4567", "12 Galle Road, Colombo",
	}
}

func TestPostgresProvider_GetInvoice_Success(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: invoiceRow(1)}}
	repo := invoice.NewPostgresProvider(db)

	got, err := repo.GetInvoice(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, []any{int64(42)}, db.lastArgs)
	assert.Equal(t, "INV-0042", got.Number)
	assert.Equal(t, "150.00", got.Amount.StringFixed(2))
	assert.True(t, got.PaymentStatus.IsPaid())
	require.NotNil(t, got.Customer())
	assert.Equal(t, "Nimal Perera", got.Customer().Name)
	assert.Equal(t, "ORD-0007", got.Order.Number)
}

func TestPostgresProvider_GetInvoice_NotFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	repo := invoice.NewPostgresProvider(db)

	_, err := repo.GetInvoice(context.Background(), 404)
	require.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestPostgresProvider_GetInvoice_QueryError(t *testing.T) {
	boom := errors.New("connection reset")
	db := &fakeDB{row: fakeRow{err: boom}}
	repo := invoice.NewPostgresProvider(db)

	_, err := repo.GetInvoice(context.Background(), 42)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, invoice.ErrNotFound)
}

func TestPostgresProvider_GetInvoice_InvalidRow(t *testing.T) {
	row := invoiceRow(0)
	row[11] = "not-an-email"
	db := &fakeDB{row: fakeRow{values: row}}
	repo := invoice.NewPostgresProvider(db)

	_, err := repo.GetInvoice(context.Background(), 42)
	require.ErrorIs(t, err, invoice.ErrShapeMismatch)
}

func TestPostgresProvider_GetOrder(t *testing.T) {
	db := &fakeDB{
		row: fakeRow{values: []any{
			int64(7), "ORD-0007",
			int64(3), "Nimal Perera", "nimal@example.com", "+94 77 123 4567", "12 Galle Road, Colombo",
		}},
		rows: &fakeRows{rows: [][]any{
			{int64(41), "INV-0041", day(2024, 4, 1), day(2024, 4, 10), "50.00", 1, "https://cms.example.com/INV-0041.pdf"},
			{int64(42), "INV-0042", day(2024, 5, 1), day(2024, 5, 15), "150.00", 0, ""},
		}},
	}
	repo := invoice.NewPostgresProvider(db)

	got, err := repo.GetOrder(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "ORD-0007", got.Number)
	require.Len(t, got.Invoices, 2)
	assert.Equal(t, "INV-0041", got.Invoices[0].Number)
	assert.Equal(t, invoice.StatusPending, got.Invoices[1].PaymentStatus)
	assert.True(t, db.rows.closed)
}

func TestPostgresProvider_GetOrder_NotFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	repo := invoice.NewPostgresProvider(db)

	_, err := repo.GetOrder(context.Background(), 7)
	require.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestPostgresProvider_UpdatePaymentStatus(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	repo := invoice.NewPostgresProvider(db)

	require.NoError(t, repo.UpdatePaymentStatus(context.Background(), 42, invoice.StatusPaid))
	require.Len(t, db.lastArgs, 3)
	assert.Equal(t, int64(42), db.lastArgs[0])
	assert.Equal(t, 1, db.lastArgs[1])

	db.tag = pgconn.NewCommandTag("UPDATE 0")
	err := repo.UpdatePaymentStatus(context.Background(), 43, invoice.StatusPaid)
	require.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestPostgresProvider_ClassifiesServerErrors(t *testing.T) {
	t.Run("missing_schema", func(t *testing.T) {
		db := &fakeDB{row: fakeRow{err: &pgconn.PgError{Code: pgerrcode.UndefinedTable, Message: `relation "invoices" does not exist`}}}
		repo := invoice.NewPostgresProvider(db)

		_, err := repo.GetInvoice(context.Background(), 42)
		require.ErrorIs(t, err, invoice.ErrSchemaMissing)
		assert.NotErrorIs(t, err, invoice.ErrNotFound)
	})

	t.Run("status_out_of_range", func(t *testing.T) {
		db := &fakeDB{execErr: &pgconn.PgError{Code: pgerrcode.NumericValueOutOfRange, Message: "smallint out of range"}}
		repo := invoice.NewPostgresProvider(db)

		err := repo.UpdatePaymentStatus(context.Background(), 42, invoice.PaymentStatus(70000))
		require.ErrorIs(t, err, invoice.ErrInvalidStatus)
	})

	t.Run("other_codes_pass_through", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: pgerrcode.ConnectionFailure}
		db := &fakeDB{execErr: pgErr}
		repo := invoice.NewPostgresProvider(db)

		err := repo.UpdatePaymentStatus(context.Background(), 42, invoice.StatusPaid)
		var got *pgconn.PgError
		require.ErrorAs(t, err, &got)
		assert.Equal(t, pgerrcode.ConnectionFailure, got.Code)
	})
}
