package service

import (
	"context"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/model"
	"github.com/cjmurphy27/barn-management-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ReconcileService turns one receipt line into at most one catalog mutation.
type ReconcileService interface {
	ReconcileLineItem(ctx context.Context, barnID uuid.UUID, item LineItem) (*dto.ReconcileResponse, error)
	// ReconcileBatch reconciles items one at a time; a failed item never
	// stops the rest.
	ReconcileBatch(ctx context.Context, barnID uuid.UUID, items []LineItem) []BatchResult
}

// BatchResult is the outcome of one item of a batch. Exactly one of Result
// and Err is set.
type BatchResult struct {
	Item   LineItem
	Result *dto.ReconcileResponse
	Err    error
}

type reconcileService struct {
	supplies repository.SupplyRepository
	guard    storeGuard
	effects  stockEffects
}

func NewReconcileService(
	supplies repository.SupplyRepository,
	movements repository.SupplyMovementRepository,
	alerts AlertPublisher,
	storeTimeout time.Duration,
) ReconcileService {
	guard := newStoreGuard(storeTimeout)
	return &reconcileService{
		supplies: supplies,
		guard:    guard,
		effects:  stockEffects{movements: movements, alerts: alerts, guard: guard},
	}
}

func (s *reconcileService) ReconcileLineItem(ctx context.Context, barnID uuid.UUID, item LineItem) (*dto.ReconcileResponse, error) {
	class := ClassifyLineItem(item.Description)
	if class == NonInventoryCharge {
		log.Info().Str("barn_id", barnID.String()).Str("item", item.Description).Msg("non-inventory charge skipped")
		return &dto.ReconcileResponse{Action: dto.ActionSkipped, Classification: string(class)}, nil
	}
	if item.qtyErr != nil {
		return nil, opError("reconcile", item.Description, item.qtyErr)
	}

	unlock := barnLocks.lock(barnID)
	defer unlock()

	var snapshot []model.SupplyRecord
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		snapshot, err = s.supplies.ListByBarn(ctx, barnID)
		return err
	})
	if err != nil {
		return nil, opError("read catalog for", item.Description, err)
	}

	if match, ok := NewCatalogIndex(snapshot).Resolve(item.Description, item.Category); ok {
		return s.update(ctx, *match, item, class)
	}
	return s.insert(ctx, barnID, item, class)
}

func (s *reconcileService) ReconcileBatch(ctx context.Context, barnID uuid.UUID, items []LineItem) []BatchResult {
	out := make([]BatchResult, len(items))
	failed := 0
	for i, item := range items {
		res, err := s.ReconcileLineItem(ctx, barnID, item)
		out[i] = BatchResult{Item: item, Result: res, Err: err}
		if err != nil {
			failed++
			log.Warn().Err(err).Str("barn_id", barnID.String()).Int("index", i).Msg("batch item failed")
		}
	}
	log.Info().Str("barn_id", barnID.String()).Int("items", len(items)).Int("failed", failed).Msg("batch reconciled")
	return out
}

// ── Update path ──────────────────────────────────────────────────────────────

func (s *reconcileService) update(ctx context.Context, rec model.SupplyRecord, item LineItem, class Classification) (*dto.ReconcileResponse, error) {
	before := rec.CurrentStock
	from := DeriveStockStatus(before, rec.ReorderPoint)

	after, err := clampStock(before, item.Quantity)
	if err != nil {
		return nil, opError("update stock of", item.Description, err)
	}
	rec.CurrentStock = after
	var cost *decimal.Decimal
	if item.UnitPrice != nil && item.UnitPrice.IsPositive() {
		p := *item.UnitPrice
		rec.LastCostPerUnit = &p
		cost = &p
	}

	err = s.guard.do(ctx, func(ctx context.Context) error {
		return s.supplies.UpdateStock(ctx, rec.BarnID, rec.ID, rec.CurrentStock, cost)
	})
	if err != nil {
		return nil, opError("update stock of", item.Description, err)
	}

	log.Info().
		Str("barn_id", rec.BarnID.String()).
		Str("record_id", rec.ID.String()).
		Str("stock_before", before.String()).
		Str("stock_after", rec.CurrentStock.String()).
		Msg("supply reconciled into existing record")

	s.effects.apply(ctx, stockChange{
		record:   &rec,
		kind:     model.MovementReceiptUpdate,
		before:   before,
		unitCost: cost,
		reason:   receiptReason(item),
		scanID:   item.ScanID,
		from:     from,
	})

	return &dto.ReconcileResponse{
		Action:         dto.ActionUpdated,
		Classification: string(class),
		Record:         toSupplyResponse(&rec),
	}, nil
}

// ── Insert path ──────────────────────────────────────────────────────────────

func (s *reconcileService) insert(ctx context.Context, barnID uuid.UUID, item LineItem, class Classification) (*dto.ReconcileResponse, error) {
	if item.Description == "" {
		return nil, opError("create supply from", item.Description, ErrInvalidLineItem)
	}

	qty := item.Quantity
	if !qty.IsPositive() {
		qty = decimal.NewFromInt(1)
	}
	unit := item.Unit
	if unit == "" {
		unit = "each"
	}
	cost := decimal.Zero
	if item.UnitPrice != nil && !item.UnitPrice.IsNegative() {
		cost = *item.UnitPrice
	}

	rec := model.SupplyRecord{
		BarnID:          barnID,
		Name:            item.Description,
		Category:        model.ParseCategory(item.Category),
		UnitType:        unit,
		CurrentStock:    qty,
		LastCostPerUnit: &cost,
	}
	err := s.guard.do(ctx, func(ctx context.Context) error {
		return s.supplies.Create(ctx, &rec)
	})
	if err != nil {
		return nil, opError("create supply from", item.Description, err)
	}

	log.Info().
		Str("barn_id", barnID.String()).
		Str("record_id", rec.ID.String()).
		Str("stock", rec.CurrentStock.String()).
		Msg("supply created from receipt line")

	s.effects.apply(ctx, stockChange{
		record:   &rec,
		kind:     model.MovementReceiptInsert,
		before:   decimal.Zero,
		unitCost: &cost,
		reason:   receiptReason(item),
		scanID:   item.ScanID,
	})

	return &dto.ReconcileResponse{
		Action:         dto.ActionCreated,
		Classification: string(class),
		Record:         toSupplyResponse(&rec),
	}, nil
}

func receiptReason(item LineItem) string {
	if item.ScanID != nil {
		return "receipt scan"
	}
	return "receipt line"
}
