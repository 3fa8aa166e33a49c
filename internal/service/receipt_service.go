package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/model"
	"github.com/cjmurphy27/barn-management-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// ReceiptExtractor is the external collaborator that reads a receipt image.
type ReceiptExtractor interface {
	Extract(ctx context.Context, barnID string, image []byte, contentType string) (*dto.ExtractedReceipt, error)
}

// ReceiptService runs the scan, review, confirm-per-line workflow. Nothing
// reaches the catalog until the operator confirms a line.
type ReceiptService interface {
	Scan(ctx context.Context, barnID uuid.UUID, image []byte, contentType string) (*dto.ScanResponse, error)
	Get(ctx context.Context, barnID, scanID uuid.UUID) (*dto.ScanResponse, error)
	ConfirmLine(ctx context.Context, barnID, scanID, lineID uuid.UUID, req dto.ConfirmLineRequest) (*dto.ConfirmLineResponse, error)
	DiscardLine(ctx context.Context, barnID, scanID, lineID uuid.UUID) (*dto.ScanResponse, error)
	// ExpireStale closes scans left open longer than ttl.
	ExpireStale(ctx context.Context, ttl time.Duration) (int64, error)
}

type receiptService struct {
	extractor  ReceiptExtractor
	scans      repository.ReceiptScanRepository
	supplies   repository.SupplyRepository
	reconciler ReconcileService
	guard      storeGuard
}

func NewReceiptService(
	extractor ReceiptExtractor,
	scans repository.ReceiptScanRepository,
	supplies repository.SupplyRepository,
	reconciler ReconcileService,
	storeTimeout time.Duration,
) ReceiptService {
	return &receiptService{
		extractor:  extractor,
		scans:      scans,
		supplies:   supplies,
		reconciler: reconciler,
		guard:      newStoreGuard(storeTimeout),
	}
}

// scanLocks is held from the settled check until the line is saved, so a
// line is applied at most once per process. Always taken before barnLocks.
var scanLocks keyedMutex

var purchaseDateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006", "1/2/2006", "01/02/06"}

func parsePurchaseDate(s string) *time.Time {
	for _, layout := range purchaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func (s *receiptService) Scan(ctx context.Context, barnID uuid.UUID, image []byte, contentType string) (*dto.ScanResponse, error) {
	if len(image) == 0 {
		return nil, opError("read receipt", contentType, fmt.Errorf("%w: empty image", ErrExtractionUnavailable))
	}

	receipt, err := s.extractor.Extract(ctx, barnID.String(), image, contentType)
	if err != nil {
		log.Warn().Err(err).Str("barn_id", barnID.String()).Msg("receipt extraction failed")
		return nil, opError("read receipt", contentType, fmt.Errorf("%w: %w", ErrExtractionUnavailable, err))
	}

	scan := &model.ReceiptScan{
		BarnID:       barnID,
		Vendor:       receipt.Vendor,
		PurchaseDate: parsePurchaseDate(receipt.PurchaseDate),
		TotalAmount:  parsePrice(string(receipt.TotalAmount)),
		Status:       model.ScanOpen,
	}
	if raw, err := json.Marshal(receipt); err == nil {
		scan.RawPayload = datatypes.JSON(raw)
	}
	for i, it := range receipt.Items {
		item := NewLineItem(it.Description, string(it.Quantity), string(it.UnitPrice), it.Category, it.Unit)
		line := model.ReceiptLine{
			Position:       i,
			Description:    item.Description,
			QuantityText:   item.QuantityText,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			Category:       item.Category,
			Unit:           item.Unit,
			Classification: string(ClassifyLineItem(item.Description)),
			Status:         model.LinePending,
		}
		if line.Classification == string(NonInventoryCharge) {
			line.Status = model.LineExcluded
		}
		scan.Lines = append(scan.Lines, line)
	}
	if allSettled(scan.Lines) {
		scan.Status = model.ScanCompleted
	}

	err = s.guard.do(ctx, func(ctx context.Context) error {
		return s.scans.Create(ctx, scan)
	})
	if err != nil {
		return nil, opError("store receipt from", receipt.Vendor, err)
	}

	log.Info().
		Str("barn_id", barnID.String()).
		Str("scan_id", scan.ID.String()).
		Int("lines", len(scan.Lines)).
		Msg("receipt scanned")
	return s.present(ctx, scan), nil
}

func (s *receiptService) load(ctx context.Context, barnID, scanID uuid.UUID) (*model.ReceiptScan, error) {
	var scan *model.ReceiptScan
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		scan, err = s.scans.FindByID(ctx, barnID, scanID)
		return err
	})
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrScanNotFound
	}
	return scan, err
}

func (s *receiptService) Get(ctx context.Context, barnID, scanID uuid.UUID) (*dto.ScanResponse, error) {
	scan, err := s.load(ctx, barnID, scanID)
	if err != nil {
		return nil, opError("get receipt scan", scanID.String(), err)
	}
	return s.present(ctx, scan), nil
}

// openLine loads the scan and the line an operator is acting on. Callers
// hold the scan's lock.
func (s *receiptService) openLine(ctx context.Context, barnID, scanID, lineID uuid.UUID) (*model.ReceiptScan, *model.ReceiptLine, error) {
	scan, err := s.load(ctx, barnID, scanID)
	if err != nil {
		return nil, nil, err
	}
	if scan.Status == model.ScanExpired {
		return nil, nil, ErrScanExpired
	}
	for i := range scan.Lines {
		if scan.Lines[i].ID == lineID {
			line := &scan.Lines[i]
			if line.Settled() {
				return nil, nil, ErrLineAlreadyProcessed
			}
			return scan, line, nil
		}
	}
	return nil, nil, ErrLineNotFound
}

func applyOverrides(line *model.ReceiptLine, req dto.ConfirmLineRequest) LineItem {
	desc, qty, price := line.Description, line.QuantityText, ""
	if line.UnitPrice != nil {
		price = line.UnitPrice.String()
	}
	category, unit := line.Category, line.Unit
	if req.Description != nil {
		desc = *req.Description
	}
	if req.Quantity != nil {
		qty = string(*req.Quantity)
	}
	if req.UnitPrice != nil {
		price = string(*req.UnitPrice)
	}
	if req.Category != nil {
		category = *req.Category
	}
	if req.Unit != nil {
		unit = *req.Unit
	}

	item := NewLineItem(desc, qty, price, category, unit)
	line.Description = item.Description
	line.QuantityText = item.QuantityText
	line.Quantity = item.Quantity
	line.UnitPrice = item.UnitPrice
	line.Category = item.Category
	line.Unit = item.Unit
	line.Classification = string(ClassifyLineItem(item.Description))
	return item
}

func (s *receiptService) ConfirmLine(ctx context.Context, barnID, scanID, lineID uuid.UUID, req dto.ConfirmLineRequest) (*dto.ConfirmLineResponse, error) {
	unlock := scanLocks.lock(scanID)
	defer unlock()

	scan, line, err := s.openLine(ctx, barnID, scanID, lineID)
	if err != nil {
		return nil, opError("confirm receipt line", lineID.String(), err)
	}

	item := applyOverrides(line, req)
	item.ScanID = &scan.ID

	result, recErr := s.reconciler.ReconcileLineItem(ctx, barnID, item)
	switch {
	case recErr != nil:
		msg := recErr.Error()
		line.Status = model.LineFailed
		line.LastError = &msg
	case result.Action == dto.ActionSkipped:
		line.Status = model.LineExcluded
		line.LastError = nil
	default:
		line.Status = model.LineReconciled
		line.Action = result.Action
		line.LastError = nil
		if id, err := uuid.Parse(result.Record.ID); err == nil {
			line.RecordID = &id
		}
	}

	resp := &dto.ConfirmLineResponse{Result: result}
	if err := s.saveLine(ctx, scan, line); err != nil {
		// The catalog change already happened; the line record is only bookkeeping.
		log.Error().Err(err).Str("scan_id", scan.ID.String()).Str("line_id", line.ID.String()).Msg("receipt line state not saved")
		resp.Warning = "line state not saved: " + err.Error()
	}
	if recErr != nil {
		return nil, recErr
	}

	resp.Line = toLineResponse(line)
	resp.ScanStatus = scan.Status
	return resp, nil
}

func (s *receiptService) DiscardLine(ctx context.Context, barnID, scanID, lineID uuid.UUID) (*dto.ScanResponse, error) {
	unlock := scanLocks.lock(scanID)
	defer unlock()

	scan, line, err := s.openLine(ctx, barnID, scanID, lineID)
	if err != nil {
		return nil, opError("discard receipt line", lineID.String(), err)
	}
	line.Status = model.LineDiscarded
	if err := s.saveLine(ctx, scan, line); err != nil {
		return nil, opError("discard receipt line", line.Description, err)
	}
	log.Info().Str("scan_id", scan.ID.String()).Str("line_id", line.ID.String()).Msg("receipt line discarded")
	return s.present(ctx, scan), nil
}

// saveLine persists the line and refreshes the scan status. Touching the
// scan also keeps an actively reviewed scan away from the sweeper.
func (s *receiptService) saveLine(ctx context.Context, scan *model.ReceiptScan, line *model.ReceiptLine) error {
	if allSettled(scan.Lines) {
		scan.Status = model.ScanCompleted
	}
	return s.guard.do(ctx, func(ctx context.Context) error {
		if err := s.scans.UpdateLine(ctx, line); err != nil {
			return err
		}
		return s.scans.UpdateStatus(ctx, scan.ID, scan.Status)
	})
}

func (s *receiptService) ExpireStale(ctx context.Context, ttl time.Duration) (int64, error) {
	var n int64
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.scans.ExpireOpenBefore(ctx, time.Now().Add(-ttl))
		return err
	})
	if err != nil {
		return 0, opError("expire receipt scans older than", ttl.String(), err)
	}
	return n, nil
}

func allSettled(lines []model.ReceiptLine) bool {
	for i := range lines {
		if !lines[i].Settled() {
			return false
		}
	}
	return true
}

// present renders a scan with a fresh preview of what confirming each open
// line would do. The preview is advisory; a store failure only drops it.
func (s *receiptService) present(ctx context.Context, scan *model.ReceiptScan) *dto.ScanResponse {
	resp := &dto.ScanResponse{
		ID:           scan.ID.String(),
		BarnID:       scan.BarnID.String(),
		Vendor:       scan.Vendor,
		PurchaseDate: scan.PurchaseDate,
		TotalAmount:  scan.TotalAmount,
		Status:       scan.Status,
		Lines:        make([]dto.ReceiptLineResponse, 0, len(scan.Lines)),
		CreatedAt:    scan.CreatedAt,
	}

	var idx *CatalogIndex
	if scan.Status == model.ScanOpen {
		var snapshot []model.SupplyRecord
		err := s.guard.do(ctx, func(ctx context.Context) error {
			var err error
			snapshot, err = s.supplies.ListByBarn(ctx, scan.BarnID)
			return err
		})
		if err != nil {
			log.Warn().Err(err).Str("scan_id", scan.ID.String()).Msg("receipt preview unavailable")
		} else {
			idx = NewCatalogIndex(snapshot)
		}
	}

	for i := range scan.Lines {
		line := &scan.Lines[i]
		lr := toLineResponse(line)
		if line.Status == model.LinePending || line.Status == model.LineFailed {
			resp.Pending++
			if idx != nil {
				lr.SuggestedAction, lr.MatchedRecordID = suggest(idx, line)
			}
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}

// Suggested actions shown next to an open line.
const (
	SuggestUpdate = "update"
	SuggestCreate = "create"
	SuggestSkip   = "skip"
)

func suggest(idx *CatalogIndex, line *model.ReceiptLine) (string, *string) {
	if ClassifyLineItem(line.Description) == NonInventoryCharge {
		return SuggestSkip, nil
	}
	if rec, ok := idx.Resolve(line.Description, line.Category); ok {
		id := rec.ID.String()
		return SuggestUpdate, &id
	}
	return SuggestCreate, nil
}
