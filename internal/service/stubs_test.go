package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/model"
	"github.com/cjmurphy27/barn-management-sub000/internal/repository"
	"github.com/cjmurphy27/barn-management-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubSupplyRepo is an in-memory SupplyRepository. err, when set, is
// returned by every call so store outages can be simulated. delay stalls
// reads until it passes or ctx is done. afterRead runs with the lock held
// once a read has copied its result, so a test can edit behind the caller.
type stubSupplyRepo struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*model.SupplyRecord
	clock     time.Time
	err       error
	delay     time.Duration
	afterRead func(records map[uuid.UUID]*model.SupplyRecord)

	lists, creates, updates int
}

func newStubSupplyRepo() *stubSupplyRepo {
	return &stubSupplyRepo{
		records: make(map[uuid.UUID]*model.SupplyRecord),
		clock:   time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

// seed inserts a record directly, bypassing the counters.
func (r *stubSupplyRepo) seed(rec model.SupplyRecord) *model.SupplyRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		r.clock = r.clock.Add(time.Minute)
		rec.CreatedAt = r.clock
	}
	if rec.UnitType == "" {
		rec.UnitType = "each"
	}
	r.records[rec.ID] = &rec
	return &rec
}

func (r *stubSupplyRepo) get(id uuid.UUID) *model.SupplyRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

func (r *stubSupplyRepo) barnRecords(barnID uuid.UUID) []model.SupplyRecord {
	var out []model.SupplyRecord
	for _, rec := range r.records {
		if rec.BarnID == barnID {
			out = append(out, *rec)
		}
	}
	// Map order is random; keep listings stable for assertions.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *stubSupplyRepo) stall(ctx context.Context) error {
	if r.delay == 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.delay):
		return nil
	}
}

func (r *stubSupplyRepo) read() {
	if r.afterRead != nil {
		r.afterRead(r.records)
	}
}

func (r *stubSupplyRepo) ListByBarn(ctx context.Context, barnID uuid.UUID) ([]model.SupplyRecord, error) {
	if err := r.stall(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	if r.err != nil {
		return nil, r.err
	}
	out := r.barnRecords(barnID)
	r.read()
	return out, nil
}

func (r *stubSupplyRepo) Search(_ context.Context, barnID uuid.UUID, f repository.SupplyFilter) ([]model.SupplyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []model.SupplyRecord
	for _, rec := range r.barnRecords(barnID) {
		if f.Category != "" && string(rec.Category) != f.Category {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(f.Name)) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *stubSupplyRepo) FindByID(ctx context.Context, barnID, id uuid.UUID) (*model.SupplyRecord, error) {
	if err := r.stall(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	rec, ok := r.records[id]
	if !ok || rec.BarnID != barnID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	r.read()
	return &cp, nil
}

func (r *stubSupplyRepo) Create(_ context.Context, rec *model.SupplyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.err != nil {
		return r.err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	r.clock = r.clock.Add(time.Minute)
	rec.CreatedAt, rec.UpdatedAt = r.clock, r.clock
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *stubSupplyRepo) Update(_ context.Context, rec *model.SupplyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.err != nil {
		return r.err
	}
	cur, ok := r.records[rec.ID]
	if !ok || cur.BarnID != rec.BarnID {
		return gorm.ErrRecordNotFound
	}
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *stubSupplyRepo) UpdateStock(_ context.Context, barnID, id uuid.UUID, stock decimal.Decimal, lastCost *decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.err != nil {
		return r.err
	}
	cur, ok := r.records[id]
	if !ok || cur.BarnID != barnID {
		return gorm.ErrRecordNotFound
	}
	cur.CurrentStock = stock
	if lastCost != nil {
		c := *lastCost
		cur.LastCostPerUnit = &c
	}
	r.clock = r.clock.Add(time.Minute)
	cur.UpdatedAt = r.clock
	return nil
}

func (r *stubSupplyRepo) Delete(_ context.Context, barnID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	rec, ok := r.records[id]
	if !ok || rec.BarnID != barnID {
		return gorm.ErrRecordNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *stubSupplyRepo) mutations() int { return r.creates + r.updates }

var _ repository.SupplyRepository = (*stubSupplyRepo)(nil)

// stubMovementRepo captures ledger rows for assertion.
type stubMovementRepo struct {
	mu        sync.Mutex
	movements []model.SupplyMovement
	err       error
}

func (r *stubMovementRepo) Create(_ context.Context, m *model.SupplyMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubMovementRepo) List(_ context.Context, barnID uuid.UUID, f repository.MovementFilter) ([]model.SupplyMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SupplyMovement
	for _, m := range r.movements {
		if m.BarnID != barnID {
			continue
		}
		if f.RecordID != nil && m.RecordID != *f.RecordID {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

var _ repository.SupplyMovementRepository = (*stubMovementRepo)(nil)

// stubScanRepo keeps scans by id; lines are stored inside their scan.
type stubScanRepo struct {
	mu    sync.Mutex
	scans map[uuid.UUID]*model.ReceiptScan
	err   error
}

func newStubScanRepo() *stubScanRepo {
	return &stubScanRepo{scans: make(map[uuid.UUID]*model.ReceiptScan)}
}

func (r *stubScanRepo) Create(_ context.Context, s *model.ReceiptScan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	for i := range s.Lines {
		s.Lines[i].ID = uuid.New()
		s.Lines[i].ScanID = s.ID
	}
	cp := *s
	cp.Lines = append([]model.ReceiptLine(nil), s.Lines...)
	r.scans[s.ID] = &cp
	return nil
}

func (r *stubScanRepo) FindByID(_ context.Context, barnID, id uuid.UUID) (*model.ReceiptScan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	s, ok := r.scans[id]
	if !ok || s.BarnID != barnID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	cp.Lines = append([]model.ReceiptLine(nil), s.Lines...)
	return &cp, nil
}

func (r *stubScanRepo) UpdateLine(_ context.Context, l *model.ReceiptLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	s, ok := r.scans[l.ScanID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range s.Lines {
		if s.Lines[i].ID == l.ID {
			s.Lines[i] = *l
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubScanRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	s, ok := r.scans[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return nil
}

func (r *stubScanRepo) ExpireOpenBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.scans {
		if s.Status == model.ScanOpen && s.UpdatedAt.Before(cutoff) {
			s.Status = model.ScanExpired
			n++
		}
	}
	return n, nil
}

var _ repository.ReceiptScanRepository = (*stubScanRepo)(nil)

// stubExtractor returns a canned receipt or error.
type stubExtractor struct {
	receipt *dto.ExtractedReceipt
	err     error
	calls   int
}

func (e *stubExtractor) Extract(_ context.Context, _ string, _ []byte, _ string) (*dto.ExtractedReceipt, error) {
	e.calls++
	return e.receipt, e.err
}

var _ service.ReceiptExtractor = (*stubExtractor)(nil)

// stubAlerts records published stock alerts.
type stubAlerts struct {
	mu     sync.Mutex
	alerts []dto.StockAlert
	err    error
}

func (a *stubAlerts) PublishStockAlert(_ context.Context, alert dto.StockAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.alerts = append(a.alerts, alert)
	return nil
}

var _ service.AlertPublisher = (*stubAlerts)(nil)

// ── Helpers ──────────────────────────────────────────────────────────────────

var errStoreDown = errors.New("dial tcp 10.0.0.5:5432: connection refused")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type harness struct {
	barnID     uuid.UUID
	supplies   *stubSupplyRepo
	movements  *stubMovementRepo
	alerts     *stubAlerts
	reconciler service.ReconcileService
	adjuster   service.AdjustmentService
}

func newHarness() *harness {
	h := &harness{
		barnID:    uuid.New(),
		supplies:  newStubSupplyRepo(),
		movements: &stubMovementRepo{},
		alerts:    &stubAlerts{},
	}
	h.reconciler = service.NewReconcileService(h.supplies, h.movements, h.alerts, time.Second)
	h.adjuster = service.NewAdjustmentService(h.supplies, h.movements, h.alerts, time.Second)
	return h
}
