package handler

import (
	"net/http"

	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type SuppliesHandler struct {
	svc    service.SupplyService
	adjust service.AdjustmentService
}

func NewSuppliesHandler(svc service.SupplyService, adjust service.AdjustmentService) *SuppliesHandler {
	return &SuppliesHandler{svc: svc, adjust: adjust}
}

func (h *SuppliesHandler) Create(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	var req dto.CreateSupplyRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), barnID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SuppliesHandler) List(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	var filter dto.SupplyFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), barnID, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SuppliesHandler) Alerts(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	resp, err := h.svc.Alerts(c.Request.Context(), barnID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SuppliesHandler) Get(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), barnID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SuppliesHandler) Update(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateSupplyRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), barnID, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SuppliesHandler) Delete(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), barnID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AdjustStock handles PATCH /v1/barns/:barn_id/supplies/:id/stock.
func (h *SuppliesHandler) AdjustStock(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.adjust.AdjustStock(c.Request.Context(), barnID, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SuppliesHandler) Movements(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Movements(c.Request.Context(), barnID, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
