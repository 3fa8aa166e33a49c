package handler

import (
	"io"
	"net/http"

	"github.com/cjmurphy27/barn-management-sub000/internal/apierror"
	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxReceiptImageBytes bounds a single uploaded receipt photo.
const MaxReceiptImageBytes = 10 << 20

type ReceiptsHandler struct{ svc service.ReceiptService }

func NewReceiptsHandler(svc service.ReceiptService) *ReceiptsHandler {
	return &ReceiptsHandler{svc: svc}
}

// Scan handles POST /v1/barns/:barn_id/receipts (multipart field "image").
func (h *ReceiptsHandler) Scan(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, "multipart field \"image\" is required"))
		return
	}
	if fh.Size > MaxReceiptImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, apierror.New(apierror.CodeBadRequest, "image exceeds 10MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, "unreadable image"))
		return
	}
	defer f.Close()
	image, err := io.ReadAll(io.LimitReader(f, MaxReceiptImageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, "unreadable image"))
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(image)
	}

	resp, err := h.svc.Scan(c.Request.Context(), barnID, image, contentType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ReceiptsHandler) Get(c *gin.Context) {
	barnID, ok := uuidParam(c, "barn_id")
	if !ok {
		return
	}
	scanID, ok := uuidParam(c, "scan_id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), barnID, scanID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmLine reconciles one reviewed line. An empty body confirms the line
// as extracted.
func (h *ReceiptsHandler) ConfirmLine(c *gin.Context) {
	barnID, scanID, lineID, ok := lineParams(c)
	if !ok {
		return
	}
	var req dto.ConfirmLineRequest
	if c.Request.ContentLength != 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}
	resp, err := h.svc.ConfirmLine(c.Request.Context(), barnID, scanID, lineID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReceiptsHandler) DiscardLine(c *gin.Context) {
	barnID, scanID, lineID, ok := lineParams(c)
	if !ok {
		return
	}
	resp, err := h.svc.DiscardLine(c.Request.Context(), barnID, scanID, lineID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func lineParams(c *gin.Context) (barnID, scanID, lineID uuid.UUID, ok bool) {
	if barnID, ok = uuidParam(c, "barn_id"); !ok {
		return
	}
	if scanID, ok = uuidParam(c, "scan_id"); !ok {
		return
	}
	lineID, ok = uuidParam(c, "line_id")
	return
}
