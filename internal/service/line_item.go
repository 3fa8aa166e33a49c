package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one receipt row on its way to the catalog. It only lives for
// the duration of a reconciliation.
type LineItem struct {
	Description  string
	Quantity     decimal.Decimal
	QuantityText string
	UnitPrice    *decimal.Decimal
	Category     string
	Unit         string

	// ScanID links ledger rows back to a stored receipt scan.
	ScanID *uuid.UUID

	// qtyErr is set when the quantity parsed but cannot be stored.
	qtyErr error
}

// MaxQuantity bounds every stored quantity: stock columns are decimal(12,3).
var MaxQuantity = decimal.New(1, 9)

// maxPrice bounds unit prices, stored as decimal(10,2).
var maxPrice = decimal.New(1, 8)

var errQuantityRange = errors.New("quantity out of range")

// NewLineItem builds a LineItem from extractor or request text. Receipt data
// is noisy: a quantity that is not a finite number becomes 1 and a price
// that does not parse is treated as absent. A finite quantity too large to
// store is kept as an error and fails reconciliation with ErrInvalidQuantity.
func NewLineItem(description, quantity, unitPrice, category, unit string) LineItem {
	qty, err := ParseQuantity(quantity)
	var qtyErr error
	if err != nil {
		qty = decimal.NewFromInt(1)
		if errors.Is(err, errQuantityRange) {
			qtyErr = err
		}
	}
	return LineItem{
		qtyErr:       qtyErr,
		Description:  strings.TrimSpace(description),
		Quantity:     qty,
		QuantityText: strings.TrimSpace(quantity),
		UnitPrice:    parsePrice(unitPrice),
		Category:     strings.TrimSpace(category),
		Unit:         strings.TrimSpace(unit),
	}
}

// ParseQuantity parses a signed finite number. Empty input, NaN, ±Inf and
// magnitudes of MaxQuantity or more are ErrInvalidQuantity.
func ParseQuantity(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, ErrInvalidQuantity
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrInvalidQuantity
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		d = decimal.NewFromFloat(f)
	}
	if d.Abs().GreaterThanOrEqual(MaxQuantity) {
		return decimal.Zero, fmt.Errorf("%w: %w: %s", ErrInvalidQuantity, errQuantityRange, s)
	}
	return d, nil
}

var priceNoise = strings.NewReplacer("$", "", ",", "", " ", "")

func parsePrice(text string) *decimal.Decimal {
	s := priceNoise.Replace(strings.TrimSpace(text))
	if s == "" {
		return nil
	}
	d, err := ParseQuantity(s)
	if err != nil || d.Abs().GreaterThanOrEqual(maxPrice) {
		return nil
	}
	return &d
}
