package service

import "strings"

// Classification is the gate between a receipt line and the catalog.
type Classification string

const (
	InventoryCandidate Classification = "inventory_candidate"
	NonInventoryCharge Classification = "non_inventory_charge"
)

// chargeKeywords mark receipt lines that are fees or adjustments rather
// than goods. Matching is substring based, so "Service Fee" and
// "Self-service bag" are both excluded.
var chargeKeywords = []string{
	"delivery",
	"shipping",
	"tax",
	"fee",
	"charge",
	"discount",
	"tip",
	"gratuity",
	"service",
}

// ClassifyLineItem reports whether a receipt line can reach the catalog.
func ClassifyLineItem(description string) Classification {
	d := strings.ToLower(description)
	for _, kw := range chargeKeywords {
		if strings.Contains(d, kw) {
			return NonInventoryCharge
		}
	}
	return InventoryCandidate
}
