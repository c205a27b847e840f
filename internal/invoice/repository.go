package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	queryInvoiceByID = `
SELECT i.id, i.number, i.invoice_date, i.due_date, i.amount::text, i.payment_status,
       COALESCE(i.download_link, ''),
       o.id, o.number,
       c.id, c.name, c.email, c.phone, c.address
FROM invoices i
JOIN orders o ON o.id = i.order_id
JOIN customers c ON c.id = o.customer_id
WHERE i.id = $1`

	queryOrderByID = `
SELECT o.id, o.number, c.id, c.name, c.email, c.phone, c.address
FROM orders o
JOIN customers c ON c.id = o.customer_id
WHERE o.id = $1`

	queryInvoicesByOrder = `
SELECT id, number, invoice_date, due_date, amount::text, payment_status, COALESCE(download_link, '')
FROM invoices
WHERE order_id = $1
ORDER BY invoice_date, id`

	updatePaymentStatus = `UPDATE invoices SET payment_status = $2, updated_at = $3 WHERE id = $1`
)

// classifyPgError maps server errors the caller can act on to sentinels.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UndefinedTable, pgerrcode.UndefinedColumn:
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pgErr.Message)
	case pgerrcode.NumericValueOutOfRange, pgerrcode.CheckViolation:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, pgErr.Message)
	}
	return err
}

// PostgresProvider serves invoices from the mirrored invoice store.
type PostgresProvider struct {
	db DB
}

func NewPostgresProvider(db DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

func (r *PostgresProvider) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	var (
		inv    Invoice
		order  Order
		amount string
		status int
	)

	err := r.db.QueryRow(ctx, queryInvoiceByID, id).Scan(
		&inv.ID, &inv.Number, &inv.Date, &inv.DueDate, &amount, &status, &inv.DownloadLink,
		&order.ID, &order.Number,
		&order.Customer.ID, &order.Customer.Name, &order.Customer.Email, &order.Customer.Phone, &order.Customer.Address,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, id)
		}
		log.Error().Err(err).Int64("invoice_id", id).Msg("repository: failed to query invoice")
		return nil, fmt.Errorf("repository: failed to get invoice %d: %w", id, classifyPgError(err))
	}

	if inv.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", ErrShapeMismatch, amount, err)
	}
	inv.PaymentStatus = PaymentStatus(status)
	inv.Order = &order

	if err := ValidateInvoice(&inv, true); err != nil {
		return nil, err
	}

	return &inv, nil
}

func (r *PostgresProvider) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var order Order

	err := r.db.QueryRow(ctx, queryOrderByID, id).Scan(
		&order.ID, &order.Number,
		&order.Customer.ID, &order.Customer.Name, &order.Customer.Email, &order.Customer.Phone, &order.Customer.Address,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		log.Error().Err(err).Int64("order_id", id).Msg("repository: failed to query order")
		return nil, fmt.Errorf("repository: failed to get order %d: %w", id, classifyPgError(err))
	}

	rows, err := r.db.Query(ctx, queryInvoicesByOrder, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query invoices of order %d: %w", id, classifyPgError(err))
	}
	defer rows.Close()

	order.Invoices = make([]Invoice, 0)
	for rows.Next() {
		var (
			inv    Invoice
			amount string
			status int
		)
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.Date, &inv.DueDate, &amount, &status, &inv.DownloadLink); err != nil {
			return nil, fmt.Errorf("repository: failed to scan invoice row: %w", err)
		}
		if inv.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: amount %q: %v", ErrShapeMismatch, amount, err)
		}
		inv.PaymentStatus = PaymentStatus(status)
		order.Invoices = append(order.Invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating invoice rows: %w", err)
	}

	if err := ValidateOrder(&order); err != nil {
		return nil, err
	}

	return &order, nil
}

// UpdatePaymentStatus records a status change pushed by the CMS or an
// operator.
func (r *PostgresProvider) UpdatePaymentStatus(ctx context.Context, id int64, status PaymentStatus) error {
	tag, err := r.db.Exec(ctx, updatePaymentStatus, id, int(status), time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Int64("invoice_id", id).Msg("repository: failed to update payment status")
		return fmt.Errorf("repository: failed to update payment status of invoice %d: %w", id, classifyPgError(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", ErrNotFound, id)
	}

	log.Info().Int64("invoice_id", id).Str("payment_status", status.String()).Msg("Invoice payment status updated")
	return nil
}

var _ Provider = (*PostgresProvider)(nil)
