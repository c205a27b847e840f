package invoice

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("invoice record not found")
	ErrShapeMismatch = errors.New("provider payload does not match the expected shape")

	// Postgres store only.
	ErrSchemaMissing = errors.New("invoice store schema is missing, run migrate")
	ErrInvalidStatus = errors.New("payment status rejected by the invoice store")
)

// Provider supplies invoice and order aggregates by internal id.
// Implementations return ErrNotFound for unknown ids and non-success
// responses, ErrShapeMismatch for malformed payloads, and any other error
// for transport failures. Providers never retry.
type Provider interface {
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
}
