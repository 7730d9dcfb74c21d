package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField checks the sort field against a whitelist and falls back
// to defaultField when it is empty or not allowed.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" || !allowedFields[trimmed] {
		return defaultField
	}
	return trimmed
}

// PaymentSortFields contains allowed sort fields for payment listings
var PaymentSortFields = map[string]bool{
	"created_at":     true,
	"operation_date": true,
	"amount":         true,
	"status":         true,
	"kind":           true,
}

// AmendmentSortFields contains allowed sort fields for amendment listings
var AmendmentSortFields = map[string]bool{
	"created_at": true,
	"new_total":  true,
}
