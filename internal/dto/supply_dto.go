package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateSupplyRequest struct {
	Name            string           `json:"name"              validate:"required,min=1,max=200"`
	Category        string           `json:"category"`
	UnitType        string           `json:"unit_type"         validate:"max=40"`
	CurrentStock    *decimal.Decimal `json:"current_stock"     validate:"omitempty,min=0"`
	MinStockLevel   *decimal.Decimal `json:"min_stock_level"   validate:"omitempty,min=0"`
	ReorderPoint    *decimal.Decimal `json:"reorder_point"     validate:"omitempty,min=0"`
	LastCostPerUnit *decimal.Decimal `json:"last_cost_per_unit" validate:"omitempty,min=0"`
	StorageLocation *string          `json:"storage_location"`
	Description     *string          `json:"description"`
	Brand           *string          `json:"brand"`
}

// UpdateSupplyRequest edits everything but stock. Stock only moves through
// reconciliation or a stock adjustment. Clear lists optional fields to unset.
type UpdateSupplyRequest struct {
	Name            *string          `json:"name"               validate:"omitempty,min=1,max=200"`
	Category        *string          `json:"category"`
	UnitType        *string          `json:"unit_type"          validate:"omitempty,max=40"`
	MinStockLevel   *decimal.Decimal `json:"min_stock_level"    validate:"omitempty,min=0"`
	ReorderPoint    *decimal.Decimal `json:"reorder_point"      validate:"omitempty,min=0"`
	LastCostPerUnit *decimal.Decimal `json:"last_cost_per_unit" validate:"omitempty,min=0"`
	StorageLocation *string          `json:"storage_location"`
	Description     *string          `json:"description"`
	Brand           *string          `json:"brand"`
	Clear           []string         `json:"clear" validate:"dive,oneof=min_stock_level reorder_point last_cost_per_unit storage_location description brand"`
}

// AdjustStockRequest is a manual +/- stock change. Without a direction the
// quantity is read as a signed delta.
type AdjustStockRequest struct {
	Direction string           `json:"direction" validate:"omitempty,oneof=add remove"`
	Quantity  FlexNumber       `json:"quantity"  validate:"required"`
	Reason    *string          `json:"reason"    validate:"omitempty,max=500"`
	UnitCost  *decimal.Decimal `json:"unit_cost"`
}

// ReconcileLineItemRequest is one receipt line submitted directly, outside a
// stored scan.
type ReconcileLineItemRequest struct {
	Description string     `json:"description" validate:"required,max=200"`
	Quantity    FlexNumber `json:"quantity"`
	UnitPrice   FlexNumber `json:"unit_price"`
	Category    string     `json:"category"`
	Unit        string     `json:"unit"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type SupplyFilter struct {
	Category string `form:"category"`
	Name     string `form:"name"`
	Status   string `form:"status" validate:"omitempty,oneof=in_stock low_stock out_of_stock"`
}

type MovementFilter struct {
	RecordID string `form:"record_id" validate:"omitempty,uuid"`
	Type     string `form:"type"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SupplyResponse struct {
	ID              string           `json:"id"`
	BarnID          string           `json:"barn_id"`
	Name            string           `json:"name"`
	Category        string           `json:"category"`
	UnitType        string           `json:"unit_type"`
	CurrentStock    decimal.Decimal  `json:"current_stock"`
	MinStockLevel   *decimal.Decimal `json:"min_stock_level"`
	ReorderPoint    *decimal.Decimal `json:"reorder_point"`
	LastCostPerUnit *decimal.Decimal `json:"last_cost_per_unit"`
	StorageLocation *string          `json:"storage_location"`
	Description     *string          `json:"description"`
	Brand           *string          `json:"brand"`
	IsOutOfStock    bool             `json:"is_out_of_stock"`
	IsLowStock      bool             `json:"is_low_stock"`
	StockStatus     string           `json:"stock_status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Reconcile actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionSkipped = "skipped"
)

type ReconcileResponse struct {
	Action         string          `json:"action"`
	Classification string          `json:"classification"`
	Record         *SupplyResponse `json:"record"`
}

type MovementResponse struct {
	ID          string           `json:"id"`
	RecordID    string           `json:"record_id"`
	Type        string           `json:"type"`
	Quantity    decimal.Decimal  `json:"quantity"`
	StockBefore decimal.Decimal  `json:"stock_before"`
	StockAfter  decimal.Decimal  `json:"stock_after"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
	Reason      string           `json:"reason"`
	ScanID      *string          `json:"scan_id"`
	CreatedAt   time.Time        `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// StockAlert is published when a record's stock status gets worse.
type StockAlert struct {
	BarnID       string           `json:"barn_id"`
	RecordID     string           `json:"record_id"`
	Name         string           `json:"name"`
	UnitType     string           `json:"unit_type"`
	Status       string           `json:"status"`
	CurrentStock decimal.Decimal  `json:"current_stock"`
	ReorderPoint *decimal.Decimal `json:"reorder_point"`
}

type ReconcileBatchRequest struct {
	Items []ReconcileLineItemRequest `json:"items" validate:"required,min=1,max=200,dive"`
}

// BatchItemError carries the same code/detail pair as the error envelope.
type BatchItemError struct {
	Code      string `json:"code"`
	Detail    string `json:"detail"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ReconcileBatchItem struct {
	Index       int                `json:"index"`
	Description string             `json:"description"`
	Result      *ReconcileResponse `json:"result,omitempty"`
	Error       *BatchItemError    `json:"error,omitempty"`
}

type ReconcileBatchResponse struct {
	Items     []ReconcileBatchItem `json:"items"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
}
