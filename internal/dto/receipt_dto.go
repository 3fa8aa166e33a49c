package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Receipt extractor contract ──────────────────────────────────────────────

// ExtractedItem is one line item as returned by the receipt extractor.
type ExtractedItem struct {
	Description string     `json:"description"`
	Quantity    FlexNumber `json:"quantity"`
	UnitPrice   FlexNumber `json:"unit_price"`
	Category    string     `json:"category"`
	Unit        string     `json:"unit"`
}

// ExtractedReceipt is the extractor's answer for one image.
type ExtractedReceipt struct {
	Vendor       string          `json:"vendor"`
	PurchaseDate string          `json:"purchase_date"`
	TotalAmount  FlexNumber      `json:"total_amount"`
	Items        []ExtractedItem `json:"items"`
}

// ─── Scan workflow ───────────────────────────────────────────────────────────

// ConfirmLineRequest lets the operator correct a line before it is
// reconciled. Nil fields keep the extracted value.
type ConfirmLineRequest struct {
	Description *string     `json:"description" validate:"omitempty,min=1,max=200"`
	Quantity    *FlexNumber `json:"quantity"`
	UnitPrice   *FlexNumber `json:"unit_price"`
	Category    *string     `json:"category"`
	Unit        *string     `json:"unit"`
}

type ReceiptLineResponse struct {
	ID              string           `json:"id"`
	Position        int              `json:"position"`
	Description     string           `json:"description"`
	QuantityText    string           `json:"quantity_text"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	Category        string           `json:"category"`
	Unit            string           `json:"unit"`
	Classification  string           `json:"classification"`
	Status          string           `json:"status"`
	Action          string           `json:"action,omitempty"`
	RecordID        *string          `json:"record_id"`
	LastError       *string          `json:"last_error"`
	SuggestedAction string           `json:"suggested_action,omitempty"` // pending lines only: update | create | skip
	MatchedRecordID *string          `json:"matched_record_id,omitempty"`
}

type ScanResponse struct {
	ID           string                `json:"id"`
	BarnID       string                `json:"barn_id"`
	Vendor       string                `json:"vendor"`
	PurchaseDate *time.Time            `json:"purchase_date"`
	TotalAmount  *decimal.Decimal      `json:"total_amount"`
	Status       string                `json:"status"`
	Lines        []ReceiptLineResponse `json:"lines"`
	Pending      int                   `json:"pending"`
	CreatedAt    time.Time             `json:"created_at"`
}

type ConfirmLineResponse struct {
	Line       ReceiptLineResponse `json:"line"`
	Result     *ReconcileResponse  `json:"result"`
	ScanStatus string              `json:"scan_status"`
	Warning    string              `json:"warning,omitempty"`
}
