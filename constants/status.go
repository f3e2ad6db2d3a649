package constants

import "strings"

// ProductStatus is the storefront-side publication status of a product.
type ProductStatus string

// Values accepted by the storefront API.
const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

// ProductState tracks how far a product has travelled through the pipeline.
type ProductState string

const (
	StateScanned   ProductState = "SCANNED"   // found on disk
	StateCreated   ProductState = "CREATED"   // ledger row, no link
	StateLinked    ProductState = "LINKED"    // ledger row with link
	StateActivated ProductState = "ACTIVATED" // status pushed to storefront
)

// BulkAction is the final action applied to every ledger row.
type BulkAction string

const (
	ActionActivate BulkAction = "activate"
	ActionDelete   BulkAction = "delete"
	ActionSkip     BulkAction = "skip"
)

var allActions = []BulkAction{ActionActivate, ActionDelete, ActionSkip}

// ParseBulkAction canonicalizes user input ("Activate", " skip ") into a BulkAction.
func ParseBulkAction(input string) (BulkAction, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, a := range allActions {
		if normalized == string(a) {
			return a, true
		}
	}
	return "", false
}

// BulkActionLabels returns the prompt labels in display order.
func BulkActionLabels() []string {
	out := make([]string, len(allActions))
	for i, a := range allActions {
		out[i] = strings.ToUpper(string(a[:1])) + string(a[1:])
	}
	return out
}
