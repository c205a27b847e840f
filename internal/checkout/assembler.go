// Package checkout resolves public reference tokens into invoice pages and
// builds the signed form that hands the customer over to the payment gateway.
//
// Every failure between the incoming token and a rendered page collapses into
// one of two errors: ErrNotFound (bad token, unknown record, malformed
// provider data, provider unreachable) or ErrConfiguration (the deployment
// cannot sign a payment form). Callers never see anything else.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/travel-checkout/internal/invoice"
	"github.com/vasiliy-maslov/travel-checkout/internal/payment"
)

var (
	ErrNotFound      = errors.New("checkout page not found")
	ErrConfiguration = errors.New("checkout is not configured")
)

const (
	PageCheckout = "checkout"
	PageOrder    = "order"

	OutcomeRendered      = "rendered"
	OutcomeViewOnly      = "view_only"
	OutcomeNotFound      = "not_found"
	OutcomeConfiguration = "configuration_error"
)

// Codec maps internal ids to public reference tokens and back.
type Codec interface {
	EncodeID(id uint64) (string, error)
	DecodeID(token string) (uint64, error)
}

// Recorder counts page outcomes.
type Recorder interface {
	PageOutcome(page, outcome string)
}

type Settings struct {
	Credentials payment.Credentials
	GatewayURL  string
	SiteBaseURL string
	APIBaseURL  string
	NotifyPath  string
}

// Validate reports the settings a payment form cannot be built without.
func (s Settings) Validate() error {
	var missing []string
	if err := s.Credentials.Validate(); err != nil {
		missing = append(missing, err.Error())
	}
	if strings.TrimSpace(s.GatewayURL) == "" {
		missing = append(missing, "gateway url")
	}
	if strings.TrimSpace(s.SiteBaseURL) == "" {
		missing = append(missing, "site base url")
	}
	if strings.TrimSpace(s.APIBaseURL) == "" {
		missing = append(missing, "api base url")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(missing, "; "))
	}
	return nil
}

// InvoiceSummary is what a customer may see of an invoice. Internal ids of
// the invoice, its order and its customer are left out.
type InvoiceSummary struct {
	Number   string    `json:"number"`
	Date     time.Time `json:"date"`
	DueDate  time.Time `json:"due_date"`
	Customer string    `json:"customer"`
}

// Page is everything the checkout template needs.
type Page struct {
	Reference    string         `json:"reference"`
	Invoice      InvoiceSummary `json:"invoice"`
	Amount       string         `json:"amount"`
	StatusLabel  string         `json:"status"`
	Payable      bool           `json:"payable"`
	DownloadLink string         `json:"download_link,omitempty"`
	// Form is nil once the invoice is paid.
	Form *PaymentForm `json:"form,omitempty"`
}

type OrderInvoice struct {
	Reference   string `json:"reference"`
	Number      string `json:"number"`
	Amount      string `json:"amount"`
	StatusLabel string `json:"status"`
	Payable     bool   `json:"payable"`
	CheckoutURL string `json:"checkout_url"`
	DueDate     string `json:"due_date"`
}

type OrderPage struct {
	Reference string         `json:"reference"`
	Number    string         `json:"number"`
	Customer  string         `json:"customer"`
	Invoices  []OrderInvoice `json:"invoices"`
	Total     string         `json:"total"`
	Balance   string         `json:"balance"`
}

type Assembler struct {
	codec    Codec
	invoices invoice.Service
	settings Settings
	recorder Recorder
}

func NewAssembler(codec Codec, invoices invoice.Service, settings Settings, recorder Recorder) *Assembler {
	return &Assembler{
		codec:    codec,
		invoices: invoices,
		settings: settings,
		recorder: recorder,
	}
}

// Assemble turns a reference token into a checkout page.
func (a *Assembler) Assemble(ctx context.Context, token string) (*Page, error) {
	id, err := a.resolve(token)
	if err != nil {
		log.Debug().Str("reference", token).Msg("Checkout reference did not decode")
		a.record(PageCheckout, OutcomeNotFound)
		return nil, err
	}

	inv, err := a.invoices.GetInvoice(ctx, id)
	if err != nil {
		a.record(PageCheckout, OutcomeNotFound)
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Providers validate too; an aggregate without a customer must not
	// reach the form builder whatever the provider did.
	if err := invoice.ValidateInvoice(inv, true); err != nil {
		log.Warn().Err(err).Str("reference", token).Int64("invoice_id", id).Msg("Invoice rejected before rendering")
		a.record(PageCheckout, OutcomeNotFound)
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	page := &Page{
		Reference: token,
		Invoice: InvoiceSummary{
			Number:   inv.Number,
			Date:     inv.Date,
			DueDate:  inv.DueDate,
			Customer: inv.Customer().Name,
		},
		Amount:       payment.FormatAmount(inv.Amount),
		StatusLabel:  inv.PaymentStatus.Label(),
		Payable:      !inv.PaymentStatus.IsPaid(),
		DownloadLink: inv.DownloadLink,
	}

	if !page.Payable {
		a.record(PageCheckout, OutcomeViewOnly)
		return page, nil
	}

	if err := a.settings.Validate(); err != nil {
		log.Error().Err(err).Msg("Refusing to build payment form")
		a.record(PageCheckout, OutcomeConfiguration)
		return nil, err
	}

	hash, err := payment.GenerateHash(a.settings.Credentials, inv.Number, inv.Amount)
	if err != nil {
		if errors.Is(err, payment.ErrMissingInput) {
			log.Error().Err(err).Msg("Refusing to build payment form")
			a.record(PageCheckout, OutcomeConfiguration)
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		log.Warn().Err(err).Int64("invoice_id", id).Msg("Invoice cannot be hashed")
		a.record(PageCheckout, OutcomeNotFound)
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	page.Form = buildForm(a.settings, token, inv, hash)

	log.Info().Str("reference", token).Int64("invoice_id", id).Str("invoice", inv.Number).Msg("Checkout page assembled")
	a.record(PageCheckout, OutcomeRendered)
	return page, nil
}

// OrderSummary turns an order reference token into the list of its invoices,
// each linked to its own checkout page.
func (a *Assembler) OrderSummary(ctx context.Context, token string) (*OrderPage, error) {
	id, err := a.resolve(token)
	if err != nil {
		a.record(PageOrder, OutcomeNotFound)
		return nil, err
	}

	order, err := a.invoices.GetOrder(ctx, id)
	if err != nil {
		a.record(PageOrder, OutcomeNotFound)
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	page := &OrderPage{
		Reference: token,
		Number:    order.Number,
		Customer:  order.Customer.Name,
		Invoices:  make([]OrderInvoice, 0, len(order.Invoices)),
	}

	sum, balance := decimal.Zero, decimal.Zero
	for _, inv := range order.Invoices {
		ref, err := a.codec.EncodeID(uint64(inv.ID))
		if err != nil {
			log.Error().Err(err).Int64("invoice_id", inv.ID).Msg("Failed to encode invoice reference")
			a.record(PageOrder, OutcomeNotFound)
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}

		sum = sum.Add(inv.Amount)
		if !inv.PaymentStatus.IsPaid() {
			balance = balance.Add(inv.Amount)
		}

		page.Invoices = append(page.Invoices, OrderInvoice{
			Reference:   ref,
			Number:      inv.Number,
			Amount:      payment.FormatAmount(inv.Amount),
			StatusLabel: inv.PaymentStatus.Label(),
			Payable:     !inv.PaymentStatus.IsPaid(),
			CheckoutURL: CheckoutURL(a.settings.SiteBaseURL, ref),
			DueDate:     inv.DueDate.Format("2006-01-02"),
		})
	}
	page.Total = payment.FormatAmount(sum)
	page.Balance = payment.FormatAmount(balance)

	a.record(PageOrder, OutcomeRendered)
	return page, nil
}

// resolve decodes token into a provider id. Ids that cannot exist (zero or
// beyond int64) are treated like undecodable tokens.
func (a *Assembler) resolve(token string) (int64, error) {
	id, err := a.codec.DecodeID(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if id == 0 || id > math.MaxInt64 {
		return 0, fmt.Errorf("%w: id %d out of range", ErrNotFound, id)
	}
	return int64(id), nil
}

func (a *Assembler) record(page, outcome string) {
	if a.recorder != nil {
		a.recorder.PageOutcome(page, outcome)
	}
}
