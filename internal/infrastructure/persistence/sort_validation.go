package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort direction to ASC or DESC.
// Returns "DESC" if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "ASC") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField checks the sort field against a whitelist of column
// names. Caller-supplied fields are never interpolated into ORDER BY
// unchecked; anything not whitelisted falls back to defaultField.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// UtilityBillSortFields contains allowed sort fields for utility bills
var UtilityBillSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"bill_date":     true,
	"due_date":      true,
	"total_amount":  true,
	"status":        true,
	"provider_name": true,
	"property_id":   true,
}

// ListingSortFields contains allowed sort fields for listings
var ListingSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"price":             true,
	"status":            true,
	"availability_date": true,
	"expiration_date":   true,
	"unit_id":           true,
	"property_id":       true,
}

// LeaseSortFields contains allowed sort fields for leases
var LeaseSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"start_date":  true,
	"end_date":    true,
	"status":      true,
	"rent_amount": true,
	"unit_id":     true,
	"property_id": true,
}

// JournalEntrySortFields contains allowed sort fields for journal entries
var JournalEntrySortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"entry_date":   true,
	"entry_number": true,
	"status":       true,
	"source_type":  true,
}
