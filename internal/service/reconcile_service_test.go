package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/model"
	"github.com/cjmurphy27/barn-management-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_UpdatePath_TimothyHay(t *testing.T) {
	h := newHarness()
	existing := h.supplies.seed(model.SupplyRecord{
		BarnID:       h.barnID,
		Name:         "Timothy Hay",
		Category:     model.CategoryBedding,
		CurrentStock: dec("5"),
		ReorderPoint: decPtr("10"),
	})

	item := service.NewLineItem("Timothy Hay", "3", "12.50", "bedding", "")
	resp, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID, item)
	require.NoError(t, err)

	assert.Equal(t, dto.ActionUpdated, resp.Action)
	assert.Equal(t, string(service.InventoryCandidate), resp.Classification)
	require.NotNil(t, resp.Record)
	assert.Equal(t, existing.ID.String(), resp.Record.ID)
	assertDec(t, "8", resp.Record.CurrentStock)
	require.NotNil(t, resp.Record.LastCostPerUnit)
	assertDec(t, "12.50", *resp.Record.LastCostPerUnit)
	assert.True(t, resp.Record.IsLowStock)
	assert.False(t, resp.Record.IsOutOfStock)

	assert.Equal(t, 0, h.supplies.creates)
	assert.Equal(t, 1, h.supplies.updates)
	assertDec(t, "8", h.supplies.get(existing.ID).CurrentStock)
}

func TestReconcile_UpdatePath_KeepsCostOnZeroPrice(t *testing.T) {
	h := newHarness()
	existing := h.supplies.seed(model.SupplyRecord{
		BarnID:          h.barnID,
		Name:            "Pine Shavings",
		Category:        model.CategoryBedding,
		CurrentStock:    dec("2"),
		LastCostPerUnit: decPtr("7.25"),
	})

	for _, price := range []string{"0", "", "-3"} {
		_, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID,
			service.NewLineItem("pine shavings", "1", price, "Bedding", ""))
		require.NoError(t, err)
	}
	rec := h.supplies.get(existing.ID)
	assertDec(t, "5", rec.CurrentStock)
	assertDec(t, "7.25", *rec.LastCostPerUnit)
}

func TestReconcile_UpdatePath_ClampsAtZero(t *testing.T) {
	h := newHarness()
	existing := h.supplies.seed(model.SupplyRecord{
		BarnID: h.barnID, Name: "Bute", Category: model.CategoryHealthMedical, CurrentStock: dec("2"),
	})

	resp, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID,
		service.NewLineItem("Bute", "-5", "", "health_medical", ""))
	require.NoError(t, err)
	assertDec(t, "0", resp.Record.CurrentStock)
	assert.True(t, resp.Record.IsOutOfStock)
	assertDec(t, "0", h.supplies.get(existing.ID).CurrentStock)

	require.Len(t, h.movements.movements, 1)
	assertDec(t, "-2", h.movements.movements[0].Quantity)
}

func TestReconcile_ChargeIsSkippedWithoutStoreCalls(t *testing.T) {
	h := newHarness()
	resp, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID,
		service.NewLineItem("Delivery Charge", "1", "15.00", "", ""))
	require.NoError(t, err)

	assert.Equal(t, dto.ActionSkipped, resp.Action)
	assert.Equal(t, string(service.NonInventoryCharge), resp.Classification)
	assert.Nil(t, resp.Record)
	assert.Equal(t, 0, h.supplies.lists)
	assert.Equal(t, 0, h.supplies.mutations())
	assert.Empty(t, h.movements.movements)
}

func TestReconcile_InsertPath_Defaults(t *testing.T) {
	h := newHarness()
	resp, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID,
		service.NewLineItem("Orchard Hay", "4", "", "Feed & Nutrition", ""))
	require.NoError(t, err)

	assert.Equal(t, dto.ActionCreated, resp.Action)
	rec := resp.Record
	assert.Equal(t, "Orchard Hay", rec.Name)
	assert.Equal(t, string(model.CategoryFeedNutrition), rec.Category)
	assert.Equal(t, "each", rec.UnitType)
	assertDec(t, "4", rec.CurrentStock)
	require.NotNil(t, rec.LastCostPerUnit)
	assertDec(t, "0", *rec.LastCostPerUnit)
	assert.Nil(t, rec.ReorderPoint)
	assert.Nil(t, rec.MinStockLevel)
	assert.Equal(t, 1, h.supplies.creates)
	assert.Equal(t, 0, h.supplies.updates)

	require.Len(t, h.movements.movements, 1)
	assert.Equal(t, model.MovementReceiptInsert, h.movements.movements[0].Type)
}

func TestReconcile_InsertPath_NonPositiveQuantityBecomesOne(t *testing.T) {
	h := newHarness()
	for _, qty := range []string{"0", "-2", "lots"} {
		resp, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID,
			service.NewLineItem("Hay net "+qty, qty, "", "", "nets"))
		require.NoError(t, err)
		assertDec(t, "1", resp.Record.CurrentStock)
		assert.Equal(t, "nets", resp.Record.UnitType)
		assert.Equal(t, string(model.CategoryOther), resp.Record.Category)
	}
}

func TestReconcile_RoundTripHitsUpdatePath(t *testing.T) {
	h := newHarness()
	item := service.NewLineItem("Electrolyte Powder", "2", "18.99", "Health & Medical", "tubs")

	first, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID, item)
	require.NoError(t, err)
	second, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID, item)
	require.NoError(t, err)

	assert.Equal(t, dto.ActionCreated, first.Action)
	assert.Equal(t, dto.ActionUpdated, second.Action)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assertDec(t, "4", second.Record.CurrentStock)
	assert.Equal(t, 1, h.supplies.creates)
}

func TestReconcile_BlankDescriptionIsInvalid(t *testing.T) {
	h := newHarness()
	_, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID, service.NewLineItem("   ", "1", "", "", ""))
	assert.ErrorIs(t, err, service.ErrInvalidLineItem)
	assert.Equal(t, 0, h.supplies.mutations())
}

func TestReconcile_StoreUnavailable(t *testing.T) {
	h := newHarness()
	h.supplies.err = errStoreDown

	_, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID,
		service.NewLineItem("Timothy Hay", "1", "", "bedding", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errStoreDown)

	var opErr *service.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "Timothy Hay", opErr.Item)
	assert.Contains(t, err.Error(), `"Timothy Hay"`)
	assert.Equal(t, 1, h.supplies.lists, "store errors are not retried")
}

func TestReconcile_CancelledContextIsStoreUnavailable(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.reconciler.ReconcileLineItem(ctx, h.barnID, service.NewLineItem("Hay", "1", "", "", ""))
	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconcile_LedgerFailureDoesNotFailReconcile(t *testing.T) {
	h := newHarness()
	h.movements.err = errors.New("ledger down")

	resp, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID, service.NewLineItem("Hay", "1", "", "", ""))
	require.NoError(t, err)
	assert.Equal(t, dto.ActionCreated, resp.Action)
}

func TestReconcile_AlertOnlyWhenStatusWorsens(t *testing.T) {
	h := newHarness()
	h.supplies.seed(model.SupplyRecord{
		BarnID: h.barnID, Name: "Wormer", Category: model.CategoryHealthMedical,
		CurrentStock: dec("12"), ReorderPoint: decPtr("10"),
	})

	_, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID, service.NewLineItem("Wormer", "1", "", "health_medical", ""))
	require.NoError(t, err)
	assert.Empty(t, h.alerts.alerts)

	_, err = h.reconciler.ReconcileLineItem(context.Background(), h.barnID, service.NewLineItem("Wormer", "-4", "", "health_medical", ""))
	require.NoError(t, err)
	require.Len(t, h.alerts.alerts, 1)
	assert.Equal(t, service.StatusLowStock, h.alerts.alerts[0].Status)
	assert.Equal(t, "Wormer", h.alerts.alerts[0].Name)
}

func TestReconcile_ScopedToBarn(t *testing.T) {
	h := newHarness()
	other := newHarness()
	h.supplies.seed(model.SupplyRecord{BarnID: other.barnID, Name: "Hay", Category: model.CategoryOther, CurrentStock: dec("3")})

	resp, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID, service.NewLineItem("Hay", "1", "", "", ""))
	require.NoError(t, err)
	assert.Equal(t, dto.ActionCreated, resp.Action)
}

func TestReconcileBatch_FailureIsScopedToItem(t *testing.T) {
	h := newHarness()
	items := []service.LineItem{
		service.NewLineItem("Timothy Hay", "2", "", "bedding", ""),
		service.NewLineItem("", "1", "", "", ""),
		service.NewLineItem("Sales Tax", "1", "3.10", "", ""),
		service.NewLineItem("Fly Spray", "1", "", "grooming", ""),
	}

	results := h.reconciler.ReconcileBatch(context.Background(), h.barnID, items)
	require.Len(t, results, 4)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, dto.ActionCreated, results[0].Result.Action)
	assert.ErrorIs(t, results[1].Err, service.ErrInvalidLineItem)
	assert.Nil(t, results[1].Result)
	assert.Equal(t, dto.ActionSkipped, results[2].Result.Action)
	assert.Equal(t, dto.ActionCreated, results[3].Result.Action)
	assert.Equal(t, 2, h.supplies.creates)
}

func TestReconcile_UpdateKeepsConcurrentEdits(t *testing.T) {
	h := newHarness()
	existing := h.supplies.seed(model.SupplyRecord{
		BarnID:       h.barnID,
		Name:         "Timothy Hay",
		Category:     model.CategoryFeedNutrition,
		CurrentStock: dec("5"),
		ReorderPoint: decPtr("10"),
	})
	h.supplies.afterRead = func(records map[uuid.UUID]*model.SupplyRecord) {
		rec := records[existing.ID]
		rec.ReorderPoint = decPtr("50")
		rec.Brand = strPtr("Acme")
	}

	_, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID,
		service.NewLineItem("Timothy Hay", "3", "", "feed_nutrition", ""))
	require.NoError(t, err)

	rec := h.supplies.get(existing.ID)
	assertDec(t, "8", rec.CurrentStock)
	require.NotNil(t, rec.ReorderPoint)
	assertDec(t, "50", *rec.ReorderPoint)
	require.NotNil(t, rec.Brand)
	assert.Equal(t, "Acme", *rec.Brand)
}

func TestReconcile_SlowStoreTimesOut(t *testing.T) {
	h := newHarness()
	h.supplies.delay = 5 * time.Second
	reconciler := service.NewReconcileService(h.supplies, h.movements, h.alerts, 30*time.Millisecond)

	start := time.Now()
	_, err := reconciler.ReconcileLineItem(context.Background(), h.barnID,
		service.NewLineItem("Timothy Hay", "1", "", "", ""))
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 0, h.supplies.mutations())
}

func TestReconcile_ConcurrentNewItemInsertsOnce(t *testing.T) {
	h := newHarness()
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID,
				service.NewLineItem("Round Bale", "1", "", "feed_nutrition", "bale"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 1, h.supplies.creates)
	assert.Equal(t, n-1, h.supplies.updates)
	recs := h.supplies.barnRecords(h.barnID)
	require.Len(t, recs, 1)
	assertDec(t, "20", recs[0].CurrentStock)
	assert.Len(t, h.movements.movements, n)
}

func TestReconcile_InsertLedgerUsesStoredCost(t *testing.T) {
	h := newHarness()
	resp, err := h.reconciler.ReconcileLineItem(context.Background(), h.barnID,
		service.NewLineItem("Coupon Hay", "2", "-4.00", "", ""))
	require.NoError(t, err)
	assertDec(t, "0", *resp.Record.LastCostPerUnit)

	require.Len(t, h.movements.movements, 1)
	mv := h.movements.movements[0]
	require.NotNil(t, mv.UnitCost)
	assertDec(t, "0", *mv.UnitCost)
}
