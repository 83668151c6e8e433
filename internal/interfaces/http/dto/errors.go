package dto

import "net/http"

// General error codes
const (
	ErrCodeUnknown    = "UNKNOWN"
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
)

// Auth error codes
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "TOKEN_INVALID"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "RATE_LIMIT_EXCEEDED"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes not listed here fall back to 500.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Malformed or invalid input -> 400
	ErrCodeValidation:           http.StatusBadRequest,
	ErrCodeBadRequest:           http.StatusBadRequest,
	"INVALID_INPUT":             http.StatusBadRequest,
	"INVALID_AMOUNT":            http.StatusBadRequest,
	"INVALID_PROVIDER":          http.StatusBadRequest,
	"INVALID_BILL_DATE":         http.StatusBadRequest,
	"INVALID_DUE_DATE":          http.StatusBadRequest,
	"INVALID_SPLIT_METHOD":      http.StatusBadRequest,
	"INVALID_RATIO":             http.StatusBadRequest,
	"INVALID_PERIOD":            http.StatusBadRequest,
	"INVALID_INVOICE_TYPE":      http.StatusBadRequest,
	"INVALID_PRICE":             http.StatusBadRequest,
	"INVALID_EXPIRATION":        http.StatusBadRequest,
	"INVALID_RENT":              http.StatusBadRequest,
	"INVALID_DEPOSIT":           http.StatusBadRequest,
	"INVALID_UNIT":              http.StatusBadRequest,
	"INVALID_UNIT_NUMBER":       http.StatusBadRequest,
	"INVALID_BEDROOMS":          http.StatusBadRequest,
	"INVALID_BATHROOMS":         http.StatusBadRequest,
	"INVALID_LEASE":             http.StatusBadRequest,
	"INVALID_TENANT":            http.StatusBadRequest,
	"INVALID_REASON":            http.StatusBadRequest,
	"INVALID_ACTION":            http.StatusBadRequest,
	"INVALID_ACCOUNT":           http.StatusBadRequest,
	"INVALID_ENTRY_DATE":        http.StatusBadRequest,
	"INVALID_ENTRY_NUMBER":      http.StatusBadRequest,
	"INVALID_JOURNAL_ENTRY":     http.StatusBadRequest,
	"LISTING_DATA_REQUIRED":     http.StatusBadRequest,
	"BATCH_TOO_LARGE":           http.StatusBadRequest,
	"NO_ALLOCATIONS":            http.StatusBadRequest,
	"ALLOCATION_MISSING_LEASE":  http.StatusBadRequest,

	// Auth -> 401/403
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	// Resource errors
	"NOT_FOUND":          http.StatusNotFound,
	"ENTRY_NOT_FOUND":    http.StatusNotFound,
	"PAYMENT_NOT_FOUND":  http.StatusNotFound,
	"PROPERTY_NOT_FOUND": http.StatusNotFound,

	// Conflicts -> 409
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"ALREADY_POSTED":       http.StatusConflict,
	"ALREADY_REVERSED":     http.StatusConflict,
	"DUPLICATE_LISTING":    http.StatusConflict,
	"DUPLICATE_UNIT":       http.StatusConflict,
	"UNIT_OCCUPIED":        http.StatusConflict,
	"LEASE_ACTIVE":         http.StatusConflict,

	// Business rule violations -> 422
	"INVALID_STATE":             http.StatusUnprocessableEntity,
	"INVALID_STATUS":            http.StatusUnprocessableEntity,
	"INVALID_STATUS_TRANSITION": http.StatusUnprocessableEntity,
	"NOT_APPROVED":              http.StatusUnprocessableEntity,
	"ALLOCATION_MISMATCH":       http.StatusUnprocessableEntity,
	"UNBALANCED_ENTRY":          http.StatusUnprocessableEntity,
	"NEGATIVE_LINE":             http.StatusUnprocessableEntity,
	"NO_LINES":                  http.StatusUnprocessableEntity,
	"NO_FINANCIAL_ENTITY":       http.StatusUnprocessableEntity,
	"OVERPAYMENT":               http.StatusUnprocessableEntity,
	"FRAUD_BLOCKED":             http.StatusUnprocessableEntity,
	"PAYMENT_DECLINED":          http.StatusUnprocessableEntity,

	// Posting pipeline failures surface as 500; the ledger write itself broke
	"JOURNAL_FAILED":  http.StatusInternalServerError,
	"POSTING_FAILED":  http.StatusInternalServerError,

	// Upstream gateway failures -> 502
	"GATEWAY_ERROR": http.StatusBadGateway,

	// Rate limiting -> 429
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not mapped.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
