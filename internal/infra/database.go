package infra

import (
	"fmt"

	"github.com/cjmurphy27/barn-management-sub000/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the catalog store connection (GORM over pgx) and tunes
// the pool. Schema management is left to RunMigrations.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return db, nil
}

// RunMigrations creates / updates all tables, then applies the postgres-only
// patches AutoMigrate cannot express. Used by the server when
// DB_AUTO_MIGRATE is set and by tests (sqlite skips the patches).
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.SupplyRecord{},
		&model.SupplyMovement{},
		&model.ReceiptScan{},
		&model.ReceiptLine{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements. Each statement is
// guarded so re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Lookup index backing the (name, category) match on reconciliation.
		// Not unique: the store does not deduplicate, the engine does.
		{"supplies match index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_supplies_barn_match') THEN
    CREATE INDEX idx_supplies_barn_match ON supplies (barn_id, lower(name), category);
  END IF;
END $$`},
		{"supplies non-negative stock", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_supplies_stock_non_negative') THEN
    ALTER TABLE supplies ADD CONSTRAINT chk_supplies_stock_non_negative CHECK (current_stock >= 0);
  END IF;
END $$`},
		// Partial index for the scan sweeper query.
		{"receipt_scans open index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_receipt_scans_open') THEN
    CREATE INDEX idx_receipt_scans_open ON receipt_scans (updated_at) WHERE status = 'open';
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
