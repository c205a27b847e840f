package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus int

const (
	StatusPending  PaymentStatus = 0
	StatusPaid     PaymentStatus = 1
	StatusDeclined PaymentStatus = 3
)

func (s PaymentStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPaid:
		return "paid"
	case StatusDeclined:
		return "declined"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Label is the badge text shown to customers. Values the provider may add
// later render as "Unknown" instead of failing the page.
func (s PaymentStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusPaid:
		return "Paid"
	case StatusDeclined:
		return "Declined"
	default:
		return "Unknown"
	}
}

func (s PaymentStatus) IsPaid() bool {
	return s == StatusPaid
}

// ParsePaymentStatus accepts a status name or its numeric code.
func ParsePaymentStatus(v string) (PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "pending":
		return StatusPending, nil
	case "paid":
		return StatusPaid, nil
	case "declined":
		return StatusDeclined, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("unknown payment status %q", v)
	}
	return PaymentStatus(n), nil
}

type Customer struct {
	ID      int64  `json:"id" validate:"gt=0"`
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
}

type Order struct {
	ID       int64     `json:"id" validate:"gt=0"`
	Number   string    `json:"number" validate:"required"`
	Customer Customer  `json:"customer"`
	Invoices []Invoice `json:"invoices,omitempty" validate:"dive"`
}

type Invoice struct {
	ID            int64           `json:"id" validate:"gt=0"`
	Number        string          `json:"number" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date" validate:"required"`
	DueDate       time.Time       `json:"due_date" validate:"required"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	DownloadLink  string          `json:"download_link,omitempty" validate:"omitempty,url"`
	Order         *Order          `json:"order,omitempty" validate:"-"`
}

// Customer returns the purchaser behind the invoice, or nil when the
// invoice was loaded without its order.
func (i *Invoice) Customer() *Customer {
	if i.Order == nil {
		return nil
	}
	return &i.Order.Customer
}
