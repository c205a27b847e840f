// Package payment builds the authentication hash the payment gateway
// recomputes on its side for every checkout redirect.
package payment

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingInput  = errors.New("payment hash input is missing")
	ErrInvalidAmount = errors.New("invalid payment amount")
)

// Credentials are the per-deployment values assigned by the gateway.
type Credentials struct {
	MerchantID     string
	MerchantSecret string
	Currency       string
}

func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.MerchantID) == "" {
		missing = append(missing, "merchant id")
	}
	if strings.TrimSpace(c.MerchantSecret) == "" {
		missing = append(missing, "merchant secret")
	}
	if strings.TrimSpace(c.Currency) == "" {
		missing = append(missing, "currency")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingInput, strings.Join(missing, ", "))
	}

	return nil
}

// GenerateHash returns
//
//	UPPER(MD5(merchantID + orderReference + FormatAmount(amount) + currency + UPPER(MD5(secret))))
//
// The digest algorithm and field order are fixed by the gateway.
func GenerateHash(creds Credentials, orderReference string, amount decimal.Decimal) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}

	if strings.TrimSpace(orderReference) == "" {
		return "", fmt.Errorf("%w: order reference", ErrMissingInput)
	}

	if amount.IsNegative() {
		return "", fmt.Errorf("%w: must be non-negative, got %s", ErrInvalidAmount, amount.String())
	}

	var b strings.Builder
	b.WriteString(creds.MerchantID)
	b.WriteString(orderReference)
	b.WriteString(FormatAmount(amount))
	b.WriteString(creds.Currency)
	b.WriteString(md5Upper(creds.MerchantSecret))

	return md5Upper(b.String()), nil
}

// VerifyHash recomputes the hash and compares it in constant time.
func VerifyHash(creds Credentials, orderReference string, amount decimal.Decimal, hash string) bool {
	expected, err := GenerateHash(creds, orderReference, amount)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToUpper(hash))) == 1
}

func md5Upper(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
