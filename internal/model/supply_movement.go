package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Movement types recorded in the stock ledger.
const (
	MovementInitial       = "initial"
	MovementReceiptInsert = "receipt_insert"
	MovementReceiptUpdate = "receipt_update"
	MovementManualAdd     = "manual_add"
	MovementManualRemove  = "manual_remove"
)

// SupplyMovement records every change of a supply's stock.
// Rows are immutable: never updated or deleted. They outlive the
// record they describe (no foreign key) so hard deletes keep their history.
type SupplyMovement struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	RecordID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	BarnID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	Type        string           `gorm:"not null"`
	Quantity    decimal.Decimal  `gorm:"type:decimal(12,3);not null"` // effective signed delta after clamping
	StockBefore decimal.Decimal  `gorm:"type:decimal(12,3);not null"`
	StockAfter  decimal.Decimal  `gorm:"type:decimal(12,3);not null"`
	UnitCost    *decimal.Decimal `gorm:"type:decimal(10,2)"`
	Reason      string
	ScanID      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
}

func (SupplyMovement) TableName() string { return "supply_movements" }

func (m *SupplyMovement) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
