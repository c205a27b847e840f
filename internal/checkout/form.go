package checkout

import (
	"net/url"
	"strings"

	"github.com/vasiliy-maslov/travel-checkout/internal/invoice"
	"github.com/vasiliy-maslov/travel-checkout/internal/payment"
)

// Gateway form field names. The gateway rejects submissions with any other
// spelling.
const (
	FieldMerchantID = "merchant_id"
	FieldReturnURL  = "return_url"
	FieldCancelURL  = "cancel_url"
	FieldNotifyURL  = "notify_url"
	FieldOrderID    = "order_id"
	FieldCurrency   = "currency"
	FieldAmount     = "amount"
	FieldFirstName  = "first_name"
	FieldLastName   = "last_name"
	FieldEmail      = "email"
	FieldPhone      = "phone"
	FieldAddress    = "address"
	FieldCity       = "city"
	FieldCountry    = "country"
	FieldHash       = "hash"
)

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PaymentForm is the POST the customer's browser sends to the gateway.
type PaymentForm struct {
	Action string  `json:"action"`
	Fields []Field `json:"fields"`
}

// Value returns the value of the named field, or "" if absent.
func (f *PaymentForm) Value(name string) string {
	for _, field := range f.Fields {
		if field.Name == name {
			return field.Value
		}
	}
	return ""
}

// buildForm assumes inv passed invoice.ValidateInvoice with its customer.
func buildForm(s Settings, token string, inv *invoice.Invoice, hash string) *PaymentForm {
	customer := inv.Customer()
	firstName, lastName := splitName(customer.Name)
	checkoutURL := CheckoutURL(s.SiteBaseURL, token)

	return &PaymentForm{
		Action: s.GatewayURL,
		Fields: []Field{
			{Name: FieldMerchantID, Value: s.Credentials.MerchantID},
			{Name: FieldReturnURL, Value: checkoutURL},
			{Name: FieldCancelURL, Value: checkoutURL},
			{Name: FieldNotifyURL, Value: strings.TrimRight(s.APIBaseURL, "/") + s.NotifyPath},
			{Name: FieldOrderID, Value: inv.Number},
			{Name: FieldCurrency, Value: s.Credentials.Currency},
			{Name: FieldAmount, Value: payment.FormatWholeAmount(inv.Amount)},
			{Name: FieldFirstName, Value: firstName},
			{Name: FieldLastName, Value: lastName},
			{Name: FieldEmail, Value: customer.Email},
			{Name: FieldPhone, Value: customer.Phone},
			{Name: FieldAddress, Value: customer.Address},
			// The CMS keeps one freeform address; the gateway insists on
			// city and country being non-empty.
			{Name: FieldCity, Value: customer.Address},
			{Name: FieldCountry, Value: customer.Address},
			{Name: FieldHash, Value: hash},
		},
	}
}

// CheckoutURL is the public, idempotent checkout page of a reference.
func CheckoutURL(siteBaseURL, token string) string {
	return strings.TrimRight(siteBaseURL, "/") + "/checkout/" + url.PathEscape(token)
}

// OrderURL is the public order summary page of a reference.
func OrderURL(siteBaseURL, token string) string {
	return strings.TrimRight(siteBaseURL, "/") + "/orders/" + url.PathEscape(token)
}

// splitName uses the first word as first name and the rest as last name.
// Single-word names are repeated since the gateway needs both.
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
