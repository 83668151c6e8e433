package valueobject

import "strings"

// Currency is an ISO 4217 currency code
type Currency string

const (
	USD Currency = "USD" // US Dollar (default)
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	KES Currency = "KES" // Kenyan Shilling
	NGN Currency = "NGN" // Nigerian Naira
)

// DefaultCurrency is used when no currency is specified
const DefaultCurrency = USD

// supportedCurrencies are the currencies payments and ledger entities accept
var supportedCurrencies = map[Currency]bool{
	USD: true,
	EUR: true,
	GBP: true,
	KES: true,
	NGN: true,
}

// IsSupported reports whether the currency can be charged and posted
func (c Currency) IsSupported() bool {
	return supportedCurrencies[c]
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// ParseCurrency normalizes a raw code and reports whether it is supported
func ParseCurrency(code string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	return c, supportedCurrencies[c]
}
