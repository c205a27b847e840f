package invoice

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const schemaCustomer = `{
  "type": "object",
  "required": ["id", "name", "email", "phone", "address"],
  "properties": {
    "id": { "type": "integer", "minimum": 1 },
    "name": { "type": "string", "minLength": 1 },
    "email": { "type": "string", "minLength": 3 },
    "phone": { "type": "string", "minLength": 1 },
    "address": { "type": "string", "minLength": 1 }
  }
}`

const schemaInvoiceFields = `
    "id": { "type": "integer", "minimum": 1 },
    "number": { "type": "string", "minLength": 1 },
    "date": { "type": "string", "minLength": 10 },
    "due_date": { "type": "string", "minLength": 10 },
    "amount": {
      "type": ["string", "number"],
      "pattern": "^[0-9]+(\\.[0-9]+)?$",
      "minimum": 0
    },
    "payment_status": { "type": "integer" },
    "download_link": { "type": ["string", "null"] }`

var schemaInvoice = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "number", "date", "due_date", "amount", "payment_status", "order"],
  "properties": {` + schemaInvoiceFields + `,
    "order": {
      "type": "object",
      "required": ["customer"],
      "properties": {
        "customer": ` + schemaCustomer + `
      }
    }
  }
}`

var schemaOrder = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "number", "customer"],
  "properties": {
    "id": { "type": "integer", "minimum": 1 },
    "number": { "type": "string", "minLength": 1 },
    "customer": ` + schemaCustomer + `,
    "invoices": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "number", "date", "due_date", "amount", "payment_status"],
        "properties": {` + schemaInvoiceFields + `
        }
      }
    }
  }
}`

var (
	invoiceSchema = gojsonschema.NewStringLoader(schemaInvoice)
	orderSchema   = gojsonschema.NewStringLoader(schemaOrder)
)

// validateJSONSchema returns ErrShapeMismatch listing every violation.
func validateJSONSchema(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrShapeMismatch, strings.Join(msgs, "; "))
	}

	return nil
}
