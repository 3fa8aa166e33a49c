package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category is the fixed set of supply categories a barn catalog uses.
type Category string

const (
	CategoryFeedNutrition       Category = "feed_nutrition"
	CategoryBedding             Category = "bedding"
	CategoryHealthMedical       Category = "health_medical"
	CategoryTackEquipment       Category = "tack_equipment"
	CategoryFacilityMaintenance Category = "facility_maintenance"
	CategoryGrooming            Category = "grooming"
	CategoryOther               Category = "other"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategoryFeedNutrition,
		CategoryBedding,
		CategoryHealthMedical,
		CategoryTackEquipment,
		CategoryFacilityMaintenance,
		CategoryGrooming,
		CategoryOther,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFeedNutrition, CategoryBedding, CategoryHealthMedical,
		CategoryTackEquipment, CategoryFacilityMaintenance, CategoryGrooming, CategoryOther:
		return true
	}
	return false
}

var categorySeparators = strings.NewReplacer(" & ", "_", "&", "_", " and ", "_", "-", "_", " ", "_", "/", "_")

// ParseCategory folds free text such as "Feed & Nutrition" or "BEDDING" into
// a Category. Anything unrecognised (including empty input) becomes
// CategoryOther.
func ParseCategory(s string) Category {
	c := Category(categorySeparators.Replace(strings.ToLower(strings.TrimSpace(s))))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// SupplyRecord is one inventory line in a barn's supply catalog.
// CurrentStock is only mutated through reconciliation or manual adjustment,
// never through a direct edit.
type SupplyRecord struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	BarnID          uuid.UUID        `gorm:"type:uuid;not null;index:idx_supplies_barn"`
	Name            string           `gorm:"not null"`
	Category        Category         `gorm:"not null;default:'other'"`
	UnitType        string           `gorm:"not null;default:'each'"`
	CurrentStock    decimal.Decimal  `gorm:"type:decimal(12,3);not null;default:0"`
	MinStockLevel   *decimal.Decimal `gorm:"type:decimal(12,3)"`
	ReorderPoint    *decimal.Decimal `gorm:"type:decimal(12,3)"`
	LastCostPerUnit *decimal.Decimal `gorm:"type:decimal(10,2)"`
	StorageLocation *string
	Description     *string
	Brand           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName keeps the table name short and stable.
func (SupplyRecord) TableName() string { return "supplies" }

// BeforeCreate assigns the identity client-side so the same model works on
// postgres and on sqlite in tests.
func (s *SupplyRecord) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
