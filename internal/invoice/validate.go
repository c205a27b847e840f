package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// dateLayouts lists the date encodings the CMS has been seen to emit.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.000Z07:00"}

// Wire shapes returned by the provider API. Dates arrive as strings and are
// parsed here so domain types keep time.Time.
type customerPayload struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type invoicePayload struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	Date          string          `json:"date"`
	DueDate       string          `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentStatus int             `json:"payment_status"`
	DownloadLink  *string         `json:"download_link"`
	Order         *struct {
		ID       int64           `json:"id"`
		Number   string          `json:"number"`
		Customer customerPayload `json:"customer"`
	} `json:"order"`
}

type orderPayload struct {
	ID       int64            `json:"id"`
	Number   string           `json:"number"`
	Customer customerPayload  `json:"customer"`
	Invoices []invoicePayload `json:"invoices"`
}

func (p customerPayload) toDomain() Customer {
	return Customer{
		ID:      p.ID,
		Name:    strings.TrimSpace(p.Name),
		Email:   strings.TrimSpace(p.Email),
		Phone:   strings.TrimSpace(p.Phone),
		Address: strings.TrimSpace(p.Address),
	}
}

func (p invoicePayload) toDomain() (*Invoice, error) {
	date, err := parseDate(p.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date: %v", ErrShapeMismatch, err)
	}

	dueDate, err := parseDate(p.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: due_date: %v", ErrShapeMismatch, err)
	}

	inv := &Invoice{
		ID:            p.ID,
		Number:        strings.TrimSpace(p.Number),
		Amount:        p.Amount,
		Date:          date,
		DueDate:       dueDate,
		PaymentStatus: PaymentStatus(p.PaymentStatus),
	}
	if p.DownloadLink != nil {
		inv.DownloadLink = strings.TrimSpace(*p.DownloadLink)
	}

	if p.Order != nil {
		inv.Order = &Order{
			ID:       p.Order.ID,
			Number:   strings.TrimSpace(p.Order.Number),
			Customer: p.Order.Customer.toDomain(),
		}
	}

	return inv, nil
}

func (p orderPayload) toDomain() (*Order, error) {
	order := &Order{
		ID:       p.ID,
		Number:   strings.TrimSpace(p.Number),
		Customer: p.Customer.toDomain(),
		Invoices: make([]Invoice, 0, len(p.Invoices)),
	}

	for _, ip := range p.Invoices {
		inv, err := ip.toDomain()
		if err != nil {
			return nil, err
		}
		order.Invoices = append(order.Invoices, *inv)
	}

	return order, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ValidateInvoice checks the rules every invoice must satisfy before it can
// be shown or paid. When withCustomer is set the owning order and customer
// must be present as well. Only the customer of the order is checked; an
// invoice payload need not carry the order id or number.
func ValidateInvoice(inv *Invoice, withCustomer bool) error {
	if inv == nil {
		return fmt.Errorf("%w: empty invoice", ErrShapeMismatch)
	}

	if err := validate.Struct(inv); err != nil {
		return shapeError(err)
	}

	if inv.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must be non-negative, got %s", ErrShapeMismatch, inv.Amount.String())
	}

	if inv.DueDate.Before(inv.Date) {
		return fmt.Errorf("%w: due_date %s is before date %s", ErrShapeMismatch,
			inv.DueDate.Format(time.DateOnly), inv.Date.Format(time.DateOnly))
	}

	if withCustomer {
		if inv.Order == nil {
			return fmt.Errorf("%w: invoice %d has no order", ErrShapeMismatch, inv.ID)
		}
		if err := validate.Struct(inv.Order.Customer); err != nil {
			return shapeError(err)
		}
	}

	return nil
}

func ValidateOrder(order *Order) error {
	if order == nil {
		return fmt.Errorf("%w: empty order", ErrShapeMismatch)
	}

	if err := validate.Struct(order); err != nil {
		return shapeError(err)
	}

	for i := range order.Invoices {
		if err := ValidateInvoice(&order.Invoices[i], false); err != nil {
			return err
		}
	}

	return nil
}

func shapeError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}

	return fmt.Errorf("%w: invalid fields: %s", ErrShapeMismatch, strings.Join(fields, ", "))
}
