package repository

import (
	"context"

	"github.com/cjmurphy27/barn-management-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementFilter defines filters for listing stock movements.
type MovementFilter struct {
	RecordID *uuid.UUID
	Type     string
	Page     int
	Limit    int
}

type SupplyMovementRepository interface {
	Create(ctx context.Context, m *model.SupplyMovement) error
	List(ctx context.Context, barnID uuid.UUID, filter MovementFilter) ([]model.SupplyMovement, int64, error)
}

type supplyMovementRepo struct{ db *gorm.DB }

func NewSupplyMovementRepository(db *gorm.DB) SupplyMovementRepository {
	return &supplyMovementRepo{db: db}
}

func (r *supplyMovementRepo) Create(ctx context.Context, m *model.SupplyMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *supplyMovementRepo) List(ctx context.Context, barnID uuid.UUID, filter MovementFilter) ([]model.SupplyMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.SupplyMovement{}).Where("barn_id = ?", barnID)
	if filter.RecordID != nil {
		q = q.Where("record_id = ?", *filter.RecordID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var movements []model.SupplyMovement
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movements).Error
	return movements, total, err
}
