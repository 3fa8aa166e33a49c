package handler

import (
	"net/http"

	"github.com/cjmurphy27/barn-management-sub000/internal/apierror"
	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type ReconcileHandler struct{ svc service.ReconcileService }

func NewReconcileHandler(svc service.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{svc: svc}
}

func toLineItem(req dto.ReconcileLineItemRequest) service.LineItem {
	return service.NewLineItem(req.Description, string(req.Quantity), string(req.UnitPrice), req.Category, req.Unit)
}

// Reconcile handles POST /v1/barns/:barn_id/supplies/reconcile.
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	var req dto.ReconcileLineItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ReconcileLineItem(c.Request.Context(), barnID, toLineItem(req))
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if resp.Action == dto.ActionCreated {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

// ReconcileBatch handles POST /v1/barns/:barn_id/supplies/reconcile/batch.
// The response is 200 even when some items failed; each item carries its
// own outcome.
func (h *ReconcileHandler) ReconcileBatch(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	var req dto.ReconcileBatchRequest
	if !bindAndValidate(c, &req) {
		return
	}
	items := make([]service.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = toLineItem(it)
	}

	results := h.svc.ReconcileBatch(c.Request.Context(), barnID, items)
	resp := dto.ReconcileBatchResponse{Items: make([]dto.ReconcileBatchItem, len(results))}
	for i, r := range results {
		item := dto.ReconcileBatchItem{Index: i, Description: r.Item.Description, Result: r.Result}
		if r.Err != nil {
			_, body := apierror.FromError(r.Err)
			item.Error = &dto.BatchItemError{Code: body.Code, Detail: body.Detail, Retryable: body.Retryable}
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Items[i] = item
	}
	c.JSON(http.StatusOK, resp)
}
