package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Scan states.
const (
	ScanOpen      = "open"      // at least one line still pending
	ScanCompleted = "completed" // every line reconciled, excluded or discarded
	ScanExpired   = "expired"   // left open past the configured TTL
)

// Line states.
const (
	LinePending    = "pending"
	LineReconciled = "reconciled"
	LineExcluded   = "excluded" // non-inventory charge, never reconciled
	LineDiscarded  = "discarded"
	LineFailed     = "failed" // last confirm attempt failed; may be retried
)

// Line classifications.
const (
	ClassInventoryCandidate = "inventory_candidate"
	ClassNonInventoryCharge = "non_inventory_charge"
)

// ReceiptScan holds one extracted receipt while the operator confirms its
// lines one by one. Partial completion is a normal resting state.
type ReceiptScan struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	BarnID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Vendor       string
	PurchaseDate *time.Time
	TotalAmount  *decimal.Decimal `gorm:"type:decimal(10,2)"`
	Status       string           `gorm:"not null;default:'open';index"`
	RawPayload   datatypes.JSON   // extractor answer as received
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Lines []ReceiptLine `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE"`
}

func (ReceiptScan) TableName() string { return "receipt_scans" }

func (s *ReceiptScan) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ReceiptLine is one extracted row of a ReceiptScan.
type ReceiptLine struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ScanID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Position       int       `gorm:"not null"`
	Description    string    `gorm:"not null"`
	QuantityText   string
	Quantity       decimal.Decimal  `gorm:"type:decimal(12,3);not null"`
	UnitPrice      *decimal.Decimal `gorm:"type:decimal(10,2)"`
	Category       string
	Unit           string
	Classification string     `gorm:"not null"`
	Status         string     `gorm:"not null;default:'pending'"`
	Action         string     // created | updated once reconciled
	RecordID       *uuid.UUID `gorm:"type:uuid"`
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ReceiptLine) TableName() string { return "receipt_lines" }

func (l *ReceiptLine) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Settled reports whether the line needs no further operator action.
func (l ReceiptLine) Settled() bool {
	switch l.Status {
	case LineReconciled, LineExcluded, LineDiscarded:
		return true
	}
	return false
}
