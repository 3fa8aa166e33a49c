package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/model"
	"github.com/cjmurphy27/barn-management-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Adjustment directions. An empty direction reads the quantity as a signed delta.
const (
	DirectionAdd    = "add"
	DirectionRemove = "remove"
)

// AdjustmentService applies manual stock corrections.
type AdjustmentService interface {
	AdjustStock(ctx context.Context, barnID, recordID uuid.UUID, req dto.AdjustStockRequest) (*dto.SupplyResponse, error)
}

type adjustmentService struct {
	supplies repository.SupplyRepository
	guard    storeGuard
	effects  stockEffects
}

func NewAdjustmentService(
	supplies repository.SupplyRepository,
	movements repository.SupplyMovementRepository,
	alerts AlertPublisher,
	storeTimeout time.Duration,
) AdjustmentService {
	guard := newStoreGuard(storeTimeout)
	return &adjustmentService{
		supplies: supplies,
		guard:    guard,
		effects:  stockEffects{movements: movements, alerts: alerts, guard: guard},
	}
}

// resolveDelta turns direction + quantity into a signed delta.
func resolveDelta(direction string, quantity dto.FlexNumber) (decimal.Decimal, error) {
	qty, err := ParseQuantity(string(quantity))
	if err != nil {
		return decimal.Zero, err
	}
	switch direction {
	case "":
		return qty, nil
	case DirectionAdd:
		return qty.Abs(), nil
	case DirectionRemove:
		return qty.Abs().Neg(), nil
	}
	return decimal.Zero, fmt.Errorf("%w: unknown direction %q", ErrInvalidQuantity, direction)
}

func (s *adjustmentService) AdjustStock(ctx context.Context, barnID, recordID uuid.UUID, req dto.AdjustStockRequest) (*dto.SupplyResponse, error) {
	item := recordID.String()
	delta, err := resolveDelta(req.Direction, req.Quantity)
	if err != nil {
		return nil, opError("adjust stock of", item, err)
	}
	if req.UnitCost != nil && req.UnitCost.GreaterThanOrEqual(maxPrice) {
		return nil, opError("adjust stock of", item, fmt.Errorf("%w: unit cost is out of range", ErrInvalidQuantity))
	}

	unlock := barnLocks.lock(barnID)
	defer unlock()

	var rec *model.SupplyRecord
	err = s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.supplies.FindByID(ctx, barnID, recordID)
		return err
	})
	if err != nil {
		return nil, opError("adjust stock of", item, err)
	}
	item = rec.Name

	before := rec.CurrentStock
	from := DeriveStockStatus(before, rec.ReorderPoint)
	after, err := clampStock(before, delta)
	if err != nil {
		return nil, opError("adjust stock of", item, err)
	}
	rec.CurrentStock = after

	kind := model.MovementManualRemove
	var cost *decimal.Decimal
	if delta.IsPositive() || req.Direction == DirectionAdd {
		kind = model.MovementManualAdd
		if req.UnitCost != nil && req.UnitCost.IsPositive() {
			c := *req.UnitCost
			rec.LastCostPerUnit = &c
			cost = &c
		}
	}

	err = s.guard.do(ctx, func(ctx context.Context) error {
		return s.supplies.UpdateStock(ctx, barnID, rec.ID, rec.CurrentStock, cost)
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			log.Warn().Str("record_id", recordID.String()).Msg("supply deleted during adjustment")
		}
		return nil, opError("adjust stock of", item, err)
	}

	reason := ""
	if req.Reason != nil {
		reason = *req.Reason
	}
	log.Info().
		Str("barn_id", barnID.String()).
		Str("record_id", rec.ID.String()).
		Str("delta", delta.String()).
		Str("stock_after", rec.CurrentStock.String()).
		Str("reason", reason).
		Msg("stock adjusted")

	s.effects.apply(ctx, stockChange{
		record:   rec,
		kind:     kind,
		before:   before,
		unitCost: cost,
		reason:   reason,
		from:     from,
	})
	return toSupplyResponse(rec), nil
}
