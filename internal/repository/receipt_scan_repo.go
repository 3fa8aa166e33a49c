package repository

import (
	"context"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReceiptScanRepository interface {
	// Create stores the scan together with its lines.
	Create(ctx context.Context, s *model.ReceiptScan) error
	// FindByID loads the scan with its lines ordered by position.
	FindByID(ctx context.Context, barnID, id uuid.UUID) (*model.ReceiptScan, error)
	UpdateLine(ctx context.Context, l *model.ReceiptLine) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// ExpireOpenBefore marks every open scan last touched before cutoff as expired.
	ExpireOpenBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type receiptScanRepo struct{ db *gorm.DB }

func NewReceiptScanRepository(db *gorm.DB) ReceiptScanRepository {
	return &receiptScanRepo{db: db}
}

func (r *receiptScanRepo) Create(ctx context.Context, s *model.ReceiptScan) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *receiptScanRepo) FindByID(ctx context.Context, barnID, id uuid.UUID) (*model.ReceiptScan, error) {
	var s model.ReceiptScan
	err := r.db.WithContext(ctx).
		Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("id = ? AND barn_id = ?", id, barnID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *receiptScanRepo) UpdateLine(ctx context.Context, l *model.ReceiptLine) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *receiptScanRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Model(&model.ReceiptScan{}).Where("id = ?", id).Update("status", status).Error
}

func (r *receiptScanRepo) ExpireOpenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.ReceiptScan{}).
		Where("status = ? AND updated_at < ?", model.ScanOpen, cutoff).
		Update("status", model.ScanExpired)
	return res.RowsAffected, res.Error
}
