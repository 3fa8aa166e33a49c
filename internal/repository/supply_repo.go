package repository

import (
	"context"
	"strings"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SupplyFilter narrows a catalog listing. Zero values mean "no filter".
type SupplyFilter struct {
	Category string
	Name     string
}

// SupplyRepository is the Catalog Store: the persisted supply records of one
// barn. Every call is scoped by barn. Services depend on this interface, not
// on the concrete GORM implementation, so tests can swap in a stub.
type SupplyRepository interface {
	// ListByBarn returns the full catalog of a barn ordered by creation time.
	ListByBarn(ctx context.Context, barnID uuid.UUID) ([]model.SupplyRecord, error)
	Search(ctx context.Context, barnID uuid.UUID, filter SupplyFilter) ([]model.SupplyRecord, error)
	FindByID(ctx context.Context, barnID, id uuid.UUID) (*model.SupplyRecord, error)
	Create(ctx context.Context, r *model.SupplyRecord) error
	Update(ctx context.Context, r *model.SupplyRecord) error
	// UpdateStock writes only the stock level and, when lastCost is non-nil,
	// the last unit cost. Other columns keep whatever is stored.
	UpdateStock(ctx context.Context, barnID, id uuid.UUID, stock decimal.Decimal, lastCost *decimal.Decimal) error
	Delete(ctx context.Context, barnID, id uuid.UUID) error
}

type supplyRepo struct{ db *gorm.DB }

func NewSupplyRepository(db *gorm.DB) SupplyRepository { return &supplyRepo{db: db} }

func (r *supplyRepo) ListByBarn(ctx context.Context, barnID uuid.UUID) ([]model.SupplyRecord, error) {
	var list []model.SupplyRecord
	err := r.db.WithContext(ctx).
		Where("barn_id = ?", barnID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

func (r *supplyRepo) Search(ctx context.Context, barnID uuid.UUID, filter SupplyFilter) ([]model.SupplyRecord, error) {
	q := r.db.WithContext(ctx).Where("barn_id = ?", barnID)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Name != "" {
		q = q.Where("lower(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	var list []model.SupplyRecord
	err := q.Order("name ASC").Find(&list).Error
	return list, err
}

func (r *supplyRepo) FindByID(ctx context.Context, barnID, id uuid.UUID) (*model.SupplyRecord, error) {
	var s model.SupplyRecord
	err := r.db.WithContext(ctx).Where("id = ? AND barn_id = ?", id, barnID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *supplyRepo) Create(ctx context.Context, s *model.SupplyRecord) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// Update saves the full record. A record that vanished between read and
// write (deleted by another client) reports gorm.ErrRecordNotFound rather
// than being silently re-inserted.
func (r *supplyRepo) Update(ctx context.Context, s *model.SupplyRecord) error {
	res := r.db.WithContext(ctx).
		Model(s).
		Where("barn_id = ?", s.BarnID).
		Select("*").Omit("id", "barn_id", "created_at").
		Updates(s)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *supplyRepo) UpdateStock(ctx context.Context, barnID, id uuid.UUID, stock decimal.Decimal, lastCost *decimal.Decimal) error {
	fields := map[string]interface{}{
		"current_stock": stock,
		"updated_at":    time.Now(),
	}
	if lastCost != nil {
		fields["last_cost_per_unit"] = *lastCost
	}
	res := r.db.WithContext(ctx).
		Model(&model.SupplyRecord{}).
		Where("id = ? AND barn_id = ?", id, barnID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *supplyRepo) Delete(ctx context.Context, barnID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND barn_id = ?", id, barnID).Delete(&model.SupplyRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
