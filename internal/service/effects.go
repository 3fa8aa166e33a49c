package service

import (
	"context"
	"sync"

	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/model"
	"github.com/cjmurphy27/barn-management-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AlertPublisher hands stock alerts to whatever delivers them (the worker
// queue in production). A nil publisher disables alerts.
type AlertPublisher interface {
	PublishStockAlert(ctx context.Context, alert dto.StockAlert) error
}

// barnLocks serialises read-modify-write cycles on one barn's catalog inside
// this process, so two confirms of the same new item cannot both insert.
var barnLocks keyedMutex

type keyedMutex struct{ m sync.Map }

func (k *keyedMutex) lock(id uuid.UUID) func() {
	v, _ := k.m.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// stockEffects are the follow-ups of a committed stock change. Neither the
// ledger row nor the alert can fail the change they describe.
type stockEffects struct {
	movements repository.SupplyMovementRepository
	alerts    AlertPublisher
	guard     storeGuard
}

type stockChange struct {
	record   *model.SupplyRecord
	kind     string
	before   decimal.Decimal
	unitCost *decimal.Decimal
	reason   string
	scanID   *uuid.UUID
	from     StockStatus
}

func (e stockEffects) apply(ctx context.Context, ch stockChange) {
	e.recordMovement(ctx, ch)
	e.notify(ctx, ch)
}

func (e stockEffects) recordMovement(ctx context.Context, ch stockChange) {
	if e.movements == nil {
		return
	}
	m := &model.SupplyMovement{
		RecordID:    ch.record.ID,
		BarnID:      ch.record.BarnID,
		Type:        ch.kind,
		Quantity:    ch.record.CurrentStock.Sub(ch.before),
		StockBefore: ch.before,
		StockAfter:  ch.record.CurrentStock,
		UnitCost:    ch.unitCost,
		Reason:      ch.reason,
		ScanID:      ch.scanID,
	}
	err := e.guard.do(ctx, func(ctx context.Context) error {
		return e.movements.Create(ctx, m)
	})
	if err != nil {
		log.Warn().Err(err).
			Str("record_id", ch.record.ID.String()).
			Str("type", ch.kind).
			Msg("stock movement not recorded")
	}
}

func (e stockEffects) notify(ctx context.Context, ch stockChange) {
	if e.alerts == nil {
		return
	}
	to := DeriveStockStatus(ch.record.CurrentStock, ch.record.ReorderPoint)
	if !to.Worsened(ch.from) {
		return
	}
	alert := dto.StockAlert{
		BarnID:       ch.record.BarnID.String(),
		RecordID:     ch.record.ID.String(),
		Name:         ch.record.Name,
		UnitType:     ch.record.UnitType,
		Status:       to.String(),
		CurrentStock: ch.record.CurrentStock,
		ReorderPoint: ch.record.ReorderPoint,
	}
	if err := e.alerts.PublishStockAlert(ctx, alert); err != nil {
		log.Warn().Err(err).Str("record_id", alert.RecordID).Msg("stock alert not published")
	}
}
