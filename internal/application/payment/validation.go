package payment

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// FieldError is one violated validation rule
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors aggregates every violated rule for a request. Expected
// input problems are reported all at once, never one-at-a-time and never
// as a panic.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	parts := make([]string, len(v.Errors))
	for i, fe := range v.Errors {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// add appends one violation
func (v *ValidationErrors) add(field, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message})
}

// HasErrors returns true when at least one rule was violated
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// maxPaymentAmount bounds a single payment request
var maxPaymentAmount = decimal.NewFromInt(1000000)

// validateChargeRequest checks every field and aggregates the violations
func validateChargeRequest(req ChargeRequest) *ValidationErrors {
	v := &ValidationErrors{}

	if req.InvoiceID == uuid.Nil {
		v.add("invoice_id", "invoice ID is required")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		v.add("amount", "amount must be positive")
	}
	if req.Amount.GreaterThan(maxPaymentAmount) {
		v.add("amount", fmt.Sprintf("amount exceeds the maximum of %s", maxPaymentAmount))
	}
	if req.Currency == "" {
		v.add("currency", "currency is required")
	} else if _, ok := valueobject.ParseCurrency(req.Currency); !ok {
		v.add("currency", fmt.Sprintf("currency %s is not supported", req.Currency))
	}
	if req.PayerEmail == "" {
		v.add("payer_email", "payer email is required")
	} else if !strings.Contains(req.PayerEmail, "@") {
		v.add("payer_email", "payer email is malformed")
	}
	if req.Method == "" {
		v.add("method", "payment method is required")
	}

	if v.HasErrors() {
		return v
	}
	return nil
}
