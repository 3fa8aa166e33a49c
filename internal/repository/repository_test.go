package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/infra"
	"github.com/cjmurphy27/barn-management-sub000/internal/model"
	"github.com/cjmurphy27/barn-management-sub000/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection: every :memory: connection is its own database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, infra.RunMigrations(db))
	return db
}

func supply(barnID uuid.UUID, name string, cat model.Category, stock int64) *model.SupplyRecord {
	return &model.SupplyRecord{BarnID: barnID, Name: name, Category: cat, UnitType: "bale", CurrentStock: decimal.NewFromInt(stock)}
}

// ── Catalog store ────────────────────────────────────────────────────────────

func TestSupplyRepo_ListByBarnIsScopedAndOrdered(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSupplyRepository(newDB(t))
	barn, other := uuid.New(), uuid.New()

	first := supply(barn, "Timothy Hay", model.CategoryFeedNutrition, 5)
	first.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, supply(barn, "Pine Shavings", model.CategoryBedding, 2)))
	require.NoError(t, repo.Create(ctx, supply(other, "Timothy Hay", model.CategoryFeedNutrition, 9)))

	list, err := repo.ListByBarn(ctx, barn)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	for _, r := range list {
		assert.Equal(t, barn, r.BarnID)
	}
}

func TestSupplyRepo_Search(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSupplyRepository(newDB(t))
	barn := uuid.New()
	require.NoError(t, repo.Create(ctx, supply(barn, "Timothy Hay", model.CategoryFeedNutrition, 5)))
	require.NoError(t, repo.Create(ctx, supply(barn, "Alfalfa Hay", model.CategoryFeedNutrition, 1)))
	require.NoError(t, repo.Create(ctx, supply(barn, "Pine Shavings", model.CategoryBedding, 2)))

	list, err := repo.Search(ctx, barn, repository.SupplyFilter{Name: "HAY"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alfalfa Hay", list[0].Name)

	list, err = repo.Search(ctx, barn, repository.SupplyFilter{Category: string(model.CategoryBedding)})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Pine Shavings", list[0].Name)
}

func TestSupplyRepo_UpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSupplyRepository(newDB(t))
	barn := uuid.New()
	rec := supply(barn, "Timothy Hay", model.CategoryFeedNutrition, 5)
	require.NoError(t, repo.Create(ctx, rec))

	cost := decimal.RequireFromString("12.50")
	reorder := decimal.NewFromInt(10)
	rec.CurrentStock = decimal.NewFromInt(8)
	rec.LastCostPerUnit = &cost
	rec.ReorderPoint = &reorder
	require.NoError(t, repo.Update(ctx, rec))

	got, err := repo.FindByID(ctx, barn, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentStock.Equal(decimal.NewFromInt(8)), got.CurrentStock.String())
	require.NotNil(t, got.LastCostPerUnit)
	assert.True(t, got.LastCostPerUnit.Equal(cost))
	require.NotNil(t, got.ReorderPoint)
	assert.True(t, got.ReorderPoint.Equal(reorder))

	// clearing an optional field persists as NULL
	rec.ReorderPoint = nil
	require.NoError(t, repo.Update(ctx, rec))
	got, err = repo.FindByID(ctx, barn, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ReorderPoint)
}

func TestSupplyRepo_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSupplyRepository(newDB(t))
	barn := uuid.New()
	rec := supply(barn, "Timothy Hay", model.CategoryFeedNutrition, 5)
	require.NoError(t, repo.Create(ctx, rec))

	_, err := repo.FindByID(ctx, uuid.New(), rec.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// update from another barn does not touch the row
	stray := *rec
	stray.BarnID = uuid.New()
	assert.ErrorIs(t, repo.Update(ctx, &stray), gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, barn, rec.ID))
	assert.ErrorIs(t, repo.Delete(ctx, barn, rec.ID), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Update(ctx, rec), gorm.ErrRecordNotFound)
}

func TestSupplyRepo_UpdateStockLeavesOtherColumns(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSupplyRepository(newDB(t))
	barn := uuid.New()
	rec := supply(barn, "Timothy Hay", model.CategoryFeedNutrition, 5)
	old := decimal.RequireFromString("9.00")
	rec.LastCostPerUnit = &old
	require.NoError(t, repo.Create(ctx, rec))

	// another client edits the record after our snapshot was taken
	edited := *rec
	brand := "Acme"
	reorder := decimal.NewFromInt(50)
	edited.Brand = &brand
	edited.ReorderPoint = &reorder
	require.NoError(t, repo.Update(ctx, &edited))

	require.NoError(t, repo.UpdateStock(ctx, barn, rec.ID, decimal.NewFromInt(8), nil))

	got, err := repo.FindByID(ctx, barn, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentStock.Equal(decimal.NewFromInt(8)), got.CurrentStock.String())
	require.NotNil(t, got.Brand)
	assert.Equal(t, "Acme", *got.Brand)
	require.NotNil(t, got.ReorderPoint)
	assert.True(t, got.ReorderPoint.Equal(reorder))
	require.NotNil(t, got.LastCostPerUnit, "nil cost keeps the stored one")
	assert.True(t, got.LastCostPerUnit.Equal(old))

	cost := decimal.RequireFromString("12.50")
	require.NoError(t, repo.UpdateStock(ctx, barn, rec.ID, decimal.NewFromInt(11), &cost))
	got, err = repo.FindByID(ctx, barn, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.LastCostPerUnit.Equal(cost))
	assert.Equal(t, "Acme", *got.Brand)

	assert.ErrorIs(t, repo.UpdateStock(ctx, uuid.New(), rec.ID, decimal.Zero, nil), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.UpdateStock(ctx, barn, uuid.New(), decimal.Zero, nil), gorm.ErrRecordNotFound)
}

// ── Movement ledger ──────────────────────────────────────────────────────────

func TestMovementRepo_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSupplyMovementRepository(newDB(t))
	barn, recA, recB := uuid.New(), uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &model.SupplyMovement{
			RecordID: recA, BarnID: barn, Type: model.MovementReceiptUpdate,
			Quantity: decimal.NewFromInt(1), StockBefore: decimal.NewFromInt(int64(i)), StockAfter: decimal.NewFromInt(int64(i + 1)),
		}))
	}
	require.NoError(t, repo.Create(ctx, &model.SupplyMovement{
		RecordID: recB, BarnID: barn, Type: model.MovementManualRemove,
		Quantity: decimal.NewFromInt(-2), StockBefore: decimal.NewFromInt(2), StockAfter: decimal.Zero,
	}))
	require.NoError(t, repo.Create(ctx, &model.SupplyMovement{
		RecordID: recB, BarnID: uuid.New(), Type: model.MovementManualAdd,
		Quantity: decimal.NewFromInt(1), StockBefore: decimal.Zero, StockAfter: decimal.NewFromInt(1),
	}))

	list, total, err := repo.List(ctx, barn, repository.MovementFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, list, 4)

	list, total, err = repo.List(ctx, barn, repository.MovementFilter{RecordID: &recA, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, list, 1)

	list, total, err = repo.List(ctx, barn, repository.MovementFilter{Type: model.MovementManualRemove})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.True(t, list[0].Quantity.Equal(decimal.NewFromInt(-2)))
}

// ── Receipt scans ────────────────────────────────────────────────────────────

func newScan(barn uuid.UUID) *model.ReceiptScan {
	price := decimal.RequireFromString("12.50")
	return &model.ReceiptScan{
		BarnID:     barn,
		Vendor:     "Tractor Supply",
		Status:     model.ScanOpen,
		RawPayload: datatypes.JSON(`{"vendor":"Tractor Supply","items":[]}`),
		Lines: []model.ReceiptLine{
			{Position: 1, Description: "Delivery Charge", Quantity: decimal.NewFromInt(1), Classification: model.ClassNonInventoryCharge, Status: model.LineExcluded},
			{Position: 0, Description: "Timothy Hay", QuantityText: "3", Quantity: decimal.NewFromInt(3), UnitPrice: &price, Classification: model.ClassInventoryCandidate, Status: model.LinePending},
		},
	}
}

func TestReceiptScanRepo_CreateAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReceiptScanRepository(newDB(t))
	barn := uuid.New()
	scan := newScan(barn)
	require.NoError(t, repo.Create(ctx, scan))
	require.NotEqual(t, uuid.Nil, scan.ID)

	got, err := repo.FindByID(ctx, barn, scan.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Timothy Hay", got.Lines[0].Description)
	assert.Equal(t, model.LineExcluded, got.Lines[1].Status)
	assert.JSONEq(t, `{"vendor":"Tractor Supply","items":[]}`, string(got.RawPayload))

	_, err = repo.FindByID(ctx, uuid.New(), scan.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReceiptScanRepo_UpdateLineAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewReceiptScanRepository(newDB(t))
	barn := uuid.New()
	scan := newScan(barn)
	require.NoError(t, repo.Create(ctx, scan))

	got, err := repo.FindByID(ctx, barn, scan.ID)
	require.NoError(t, err)
	line := got.Lines[0]
	recordID := uuid.New()
	line.Status = model.LineReconciled
	line.Action = "created"
	line.RecordID = &recordID
	require.NoError(t, repo.UpdateLine(ctx, &line))
	require.NoError(t, repo.UpdateStatus(ctx, scan.ID, model.ScanCompleted))

	got, err = repo.FindByID(ctx, barn, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanCompleted, got.Status)
	assert.Equal(t, model.LineReconciled, got.Lines[0].Status)
	require.NotNil(t, got.Lines[0].RecordID)
	assert.Equal(t, recordID, *got.Lines[0].RecordID)
}

func TestReceiptScanRepo_ExpireOpenBefore(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	repo := repository.NewReceiptScanRepository(db)
	barn := uuid.New()

	stale, fresh, done := newScan(barn), newScan(barn), newScan(barn)
	done.Status = model.ScanCompleted
	for _, s := range []*model.ReceiptScan{stale, fresh, done} {
		require.NoError(t, repo.Create(ctx, s))
	}
	old := time.Now().Add(-48 * time.Hour)
	for _, s := range []*model.ReceiptScan{stale, done} {
		require.NoError(t, db.Model(s).UpdateColumn("updated_at", old).Error)
	}

	n, err := repo.ExpireOpenBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.FindByID(ctx, barn, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanExpired, got.Status)
	got, err = repo.FindByID(ctx, barn, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanOpen, got.Status)
	got, err = repo.FindByID(ctx, barn, done.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanCompleted, got.Status)
}
