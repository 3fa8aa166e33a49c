package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/model"
	"github.com/cjmurphy27/barn-management-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// SupplyService is the direct catalog surface: explicit add, edit, delete
// and listings. Stock itself only moves through reconciliation or
// AdjustmentService.
type SupplyService interface {
	Create(ctx context.Context, barnID uuid.UUID, req dto.CreateSupplyRequest) (*dto.SupplyResponse, error)
	Get(ctx context.Context, barnID, id uuid.UUID) (*dto.SupplyResponse, error)
	List(ctx context.Context, barnID uuid.UUID, filter dto.SupplyFilter) ([]dto.SupplyResponse, error)
	Update(ctx context.Context, barnID, id uuid.UUID, req dto.UpdateSupplyRequest) (*dto.SupplyResponse, error)
	Delete(ctx context.Context, barnID, id uuid.UUID) error
	Alerts(ctx context.Context, barnID uuid.UUID) ([]dto.SupplyResponse, error)
	Movements(ctx context.Context, barnID uuid.UUID, filter dto.MovementFilter) (*dto.MovementListResponse, error)
}

type supplyService struct {
	supplies  repository.SupplyRepository
	movements repository.SupplyMovementRepository
	guard     storeGuard
	effects   stockEffects
}

func NewSupplyService(
	supplies repository.SupplyRepository,
	movements repository.SupplyMovementRepository,
	storeTimeout time.Duration,
) SupplyService {
	guard := newStoreGuard(storeTimeout)
	return &supplyService{
		supplies:  supplies,
		movements: movements,
		guard:     guard,
		effects:   stockEffects{movements: movements, guard: guard},
	}
}

func nonNegative(field string, v *decimal.Decimal) error {
	if v == nil {
		return nil
	}
	if v.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidQuantity, field)
	}
	limit := MaxQuantity
	if field == "last_cost_per_unit" {
		limit = maxPrice
	}
	if v.GreaterThanOrEqual(limit) {
		return fmt.Errorf("%w: %s is out of range", ErrInvalidQuantity, field)
	}
	return nil
}

func validateAmounts(fields map[string]*decimal.Decimal) error {
	for name, v := range fields {
		if err := nonNegative(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *supplyService) Create(ctx context.Context, barnID uuid.UUID, req dto.CreateSupplyRequest) (*dto.SupplyResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, opError("create supply", req.Name, ErrInvalidLineItem)
	}
	if err := validateAmounts(map[string]*decimal.Decimal{
		"current_stock":      req.CurrentStock,
		"min_stock_level":    req.MinStockLevel,
		"reorder_point":      req.ReorderPoint,
		"last_cost_per_unit": req.LastCostPerUnit,
	}); err != nil {
		return nil, opError("create supply", name, err)
	}

	unit := strings.TrimSpace(req.UnitType)
	if unit == "" {
		unit = "each"
	}
	rec := model.SupplyRecord{
		BarnID:          barnID,
		Name:            name,
		Category:        model.ParseCategory(req.Category),
		UnitType:        unit,
		MinStockLevel:   req.MinStockLevel,
		ReorderPoint:    req.ReorderPoint,
		LastCostPerUnit: req.LastCostPerUnit,
		StorageLocation: req.StorageLocation,
		Description:     req.Description,
		Brand:           req.Brand,
	}
	if req.CurrentStock != nil {
		rec.CurrentStock = *req.CurrentStock
	}

	err := s.guard.do(ctx, func(ctx context.Context) error {
		return s.supplies.Create(ctx, &rec)
	})
	if err != nil {
		return nil, opError("create supply", name, err)
	}
	log.Info().Str("barn_id", barnID.String()).Str("record_id", rec.ID.String()).Msg("supply created")

	if rec.CurrentStock.IsPositive() {
		s.effects.recordMovement(ctx, stockChange{
			record:   &rec,
			kind:     model.MovementInitial,
			before:   decimal.Zero,
			unitCost: rec.LastCostPerUnit,
			reason:   "initial stock",
		})
	}
	return toSupplyResponse(&rec), nil
}

func (s *supplyService) find(ctx context.Context, barnID, id uuid.UUID) (*model.SupplyRecord, error) {
	var rec *model.SupplyRecord
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.supplies.FindByID(ctx, barnID, id)
		return err
	})
	return rec, err
}

func (s *supplyService) Get(ctx context.Context, barnID, id uuid.UUID) (*dto.SupplyResponse, error) {
	rec, err := s.find(ctx, barnID, id)
	if err != nil {
		return nil, opError("get supply", id.String(), err)
	}
	return toSupplyResponse(rec), nil
}

func (s *supplyService) List(ctx context.Context, barnID uuid.UUID, filter dto.SupplyFilter) ([]dto.SupplyResponse, error) {
	f := repository.SupplyFilter{Name: strings.TrimSpace(filter.Name)}
	if strings.TrimSpace(filter.Category) != "" {
		f.Category = string(model.ParseCategory(filter.Category))
	}

	var list []model.SupplyRecord
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		list, err = s.supplies.Search(ctx, barnID, f)
		return err
	})
	if err != nil {
		return nil, opError("list supplies of barn", barnID.String(), err)
	}

	out := make([]dto.SupplyResponse, 0, len(list))
	for i := range list {
		resp := toSupplyResponse(&list[i])
		if filter.Status != "" && resp.StockStatus != filter.Status {
			continue
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *supplyService) Alerts(ctx context.Context, barnID uuid.UUID) ([]dto.SupplyResponse, error) {
	var list []model.SupplyRecord
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		list, err = s.supplies.ListByBarn(ctx, barnID)
		return err
	})
	if err != nil {
		return nil, opError("list stock alerts of barn", barnID.String(), err)
	}

	out := make([]dto.SupplyResponse, 0)
	for i := range list {
		resp := toSupplyResponse(&list[i])
		if resp.IsOutOfStock || resp.IsLowStock {
			out = append(out, *resp)
		}
	}
	return out, nil
}

func (s *supplyService) Update(ctx context.Context, barnID, id uuid.UUID, req dto.UpdateSupplyRequest) (*dto.SupplyResponse, error) {
	if err := validateAmounts(map[string]*decimal.Decimal{
		"min_stock_level":    req.MinStockLevel,
		"reorder_point":      req.ReorderPoint,
		"last_cost_per_unit": req.LastCostPerUnit,
	}); err != nil {
		return nil, opError("update supply", id.String(), err)
	}

	unlock := barnLocks.lock(barnID)
	defer unlock()

	rec, err := s.find(ctx, barnID, id)
	if err != nil {
		return nil, opError("update supply", id.String(), err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, opError("update supply", rec.Name, ErrInvalidLineItem)
		}
		rec.Name = name
	}
	if req.Category != nil {
		rec.Category = model.ParseCategory(*req.Category)
	}
	if req.UnitType != nil && strings.TrimSpace(*req.UnitType) != "" {
		rec.UnitType = strings.TrimSpace(*req.UnitType)
	}
	if req.MinStockLevel != nil {
		rec.MinStockLevel = req.MinStockLevel
	}
	if req.ReorderPoint != nil {
		rec.ReorderPoint = req.ReorderPoint
	}
	if req.LastCostPerUnit != nil {
		rec.LastCostPerUnit = req.LastCostPerUnit
	}
	if req.StorageLocation != nil {
		rec.StorageLocation = req.StorageLocation
	}
	if req.Description != nil {
		rec.Description = req.Description
	}
	if req.Brand != nil {
		rec.Brand = req.Brand
	}
	for _, field := range req.Clear {
		switch field {
		case "min_stock_level":
			rec.MinStockLevel = nil
		case "reorder_point":
			rec.ReorderPoint = nil
		case "last_cost_per_unit":
			rec.LastCostPerUnit = nil
		case "storage_location":
			rec.StorageLocation = nil
		case "description":
			rec.Description = nil
		case "brand":
			rec.Brand = nil
		}
	}

	err = s.guard.do(ctx, func(ctx context.Context) error {
		return s.supplies.Update(ctx, rec)
	})
	if err != nil {
		return nil, opError("update supply", rec.Name, err)
	}
	log.Info().Str("barn_id", barnID.String()).Str("record_id", rec.ID.String()).Msg("supply updated")
	return toSupplyResponse(rec), nil
}

func (s *supplyService) Delete(ctx context.Context, barnID, id uuid.UUID) error {
	err := s.guard.do(ctx, func(ctx context.Context) error {
		return s.supplies.Delete(ctx, barnID, id)
	})
	if err != nil {
		return opError("delete supply", id.String(), err)
	}
	log.Info().Str("barn_id", barnID.String()).Str("record_id", id.String()).Msg("supply deleted")
	return nil
}

func (s *supplyService) Movements(ctx context.Context, barnID uuid.UUID, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	f := repository.MovementFilter{Type: filter.Type, Page: filter.Page, Limit: filter.Limit}
	if filter.RecordID != "" {
		id, err := uuid.Parse(filter.RecordID)
		if err != nil {
			return nil, opError("list movements of", filter.RecordID, ErrRecordNotFound)
		}
		f.RecordID = &id
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 500 {
		f.Limit = 100
	}

	var (
		list  []model.SupplyMovement
		total int64
	)
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		list, total, err = s.movements.List(ctx, barnID, f)
		return err
	})
	if err != nil {
		return nil, opError("list movements of barn", barnID.String(), err)
	}

	data := make([]dto.MovementResponse, 0, len(list))
	for i := range list {
		data = append(data, toMovementResponse(&list[i]))
	}
	return &dto.MovementListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}
