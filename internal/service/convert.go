package service

import (
	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/model"
)

func toSupplyResponse(r *model.SupplyRecord) *dto.SupplyResponse {
	status := DeriveStockStatus(r.CurrentStock, r.ReorderPoint)
	return &dto.SupplyResponse{
		ID:              r.ID.String(),
		BarnID:          r.BarnID.String(),
		Name:            r.Name,
		Category:        string(r.Category),
		UnitType:        r.UnitType,
		CurrentStock:    r.CurrentStock,
		MinStockLevel:   r.MinStockLevel,
		ReorderPoint:    r.ReorderPoint,
		LastCostPerUnit: r.LastCostPerUnit,
		StorageLocation: r.StorageLocation,
		Description:     r.Description,
		Brand:           r.Brand,
		IsOutOfStock:    status.IsOutOfStock,
		IsLowStock:      status.IsLowStock,
		StockStatus:     status.String(),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toMovementResponse(m *model.SupplyMovement) dto.MovementResponse {
	resp := dto.MovementResponse{
		ID:          m.ID.String(),
		RecordID:    m.RecordID.String(),
		Type:        m.Type,
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		UnitCost:    m.UnitCost,
		Reason:      m.Reason,
		CreatedAt:   m.CreatedAt,
	}
	if m.ScanID != nil {
		s := m.ScanID.String()
		resp.ScanID = &s
	}
	return resp
}

func toLineResponse(l *model.ReceiptLine) dto.ReceiptLineResponse {
	resp := dto.ReceiptLineResponse{
		ID:             l.ID.String(),
		Position:       l.Position,
		Description:    l.Description,
		QuantityText:   l.QuantityText,
		Quantity:       l.Quantity,
		UnitPrice:      l.UnitPrice,
		Category:       l.Category,
		Unit:           l.Unit,
		Classification: l.Classification,
		Status:         l.Status,
		Action:         l.Action,
		LastError:      l.LastError,
	}
	if l.RecordID != nil {
		s := l.RecordID.String()
		resp.RecordID = &s
	}
	return resp
}
