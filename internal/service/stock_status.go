package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StockStatus is derived from stock and reorder point on every read; it is
// never stored.
type StockStatus struct {
	IsOutOfStock bool
	IsLowStock   bool
}

const (
	StatusInStock    = "in_stock"
	StatusLowStock   = "low_stock"
	StatusOutOfStock = "out_of_stock"
)

// DeriveStockStatus: out of stock dominates low stock, and a record without
// a reorder point is never low.
func DeriveStockStatus(stock decimal.Decimal, reorderPoint *decimal.Decimal) StockStatus {
	if stock.LessThanOrEqual(decimal.Zero) {
		return StockStatus{IsOutOfStock: true}
	}
	if reorderPoint != nil && stock.LessThanOrEqual(*reorderPoint) {
		return StockStatus{IsLowStock: true}
	}
	return StockStatus{}
}

func (s StockStatus) String() string {
	switch {
	case s.IsOutOfStock:
		return StatusOutOfStock
	case s.IsLowStock:
		return StatusLowStock
	}
	return StatusInStock
}

func (s StockStatus) severity() int {
	switch {
	case s.IsOutOfStock:
		return 2
	case s.IsLowStock:
		return 1
	}
	return 0
}

// Worsened reports a transition that should alert the barn.
func (s StockStatus) Worsened(from StockStatus) bool {
	return s.severity() > from.severity()
}

// clampStock applies a signed delta without ever going below zero. A result
// of MaxQuantity or more is ErrInvalidQuantity.
func clampStock(stock, delta decimal.Decimal) (decimal.Decimal, error) {
	after := decimal.Max(decimal.Zero, stock.Add(delta))
	if after.GreaterThanOrEqual(MaxQuantity) {
		return stock, fmt.Errorf("%w: stock %s + %s is out of range", ErrInvalidQuantity, stock, delta)
	}
	return after, nil
}
