package router

import (
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/config"
	"github.com/cjmurphy27/barn-management-sub000/internal/handler"
	"github.com/cjmurphy27/barn-management-sub000/internal/infra"
	"github.com/cjmurphy27/barn-management-sub000/internal/middleware"
	"github.com/cjmurphy27/barn-management-sub000/internal/repository"
	"github.com/cjmurphy27/barn-management-sub000/internal/service"
	"github.com/cjmurphy27/barn-management-sub000/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Services is the wired service layer, shared by the HTTP server, the
// background jobs and barnctl.
type Services struct {
	Supplies  service.SupplyService
	Adjust    service.AdjustmentService
	Reconcile service.ReconcileService
	Receipts  service.ReceiptService
	Extractor *infra.ReceiptExtractor
}

// NewServices wires Service ← Repository ← DB/Redis. rdb may be nil, in
// which case stock alerts are not published.
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Services {
	// ── Infrastructure ───────────────────────────────────────────────────────
	extractorCB := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "receipt-extractor"})
	extractor := infra.NewReceiptExtractor(cfg.ExtractorURL, cfg.ExtractorAPIKey, cfg.ExtractorTimeout, extractorCB)

	var alerts service.AlertPublisher
	if rdb != nil {
		alerts = worker.NewDispatcher(rdb)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	supplyRepo := repository.NewSupplyRepository(db)
	movementRepo := repository.NewSupplyMovementRepository(db)
	scanRepo := repository.NewReceiptScanRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	reconcileSvc := service.NewReconcileService(supplyRepo, movementRepo, alerts, cfg.StoreTimeout)
	return &Services{
		Supplies:  service.NewSupplyService(supplyRepo, movementRepo, cfg.StoreTimeout),
		Adjust:    service.NewAdjustmentService(supplyRepo, movementRepo, alerts, cfg.StoreTimeout),
		Reconcile: reconcileSvc,
		Receipts:  service.NewReceiptService(extractor, scanRepo, supplyRepo, reconcileSvc, cfg.StoreTimeout),
		Extractor: extractor,
	}
}

// New returns a configured Gin engine over svc.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, svc *Services) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Handlers ─────────────────────────────────────────────────────────────
	suppliesH := handler.NewSuppliesHandler(svc.Supplies, svc.Adjust)
	reconcileH := handler.NewReconcileHandler(svc.Reconcile)
	receiptsH := handler.NewReceiptsHandler(svc.Receipts)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, svc.Extractor.Breaker()))

	barnMW := []gin.HandlerFunc{middleware.JWTAuth(cfg.JWTSecret), middleware.RequireBarnAccess()}
	if cfg.JWTSecret == "" {
		// config.Validate refuses this in production.
		log.Warn().Msg("JWT_SECRET is empty: barn routes are served without authentication")
		barnMW = nil
	}

	barn := r.Group("/v1/barns/:barn_id", barnMW...)
	{
		supplies := barn.Group("/supplies")
		{
			supplies.GET("", suppliesH.List)
			supplies.POST("", suppliesH.Create)
			supplies.GET("/alerts", suppliesH.Alerts)
			supplies.GET("/movements", suppliesH.Movements)
			supplies.POST("/reconcile", reconcileH.Reconcile)
			supplies.POST("/reconcile/batch", reconcileH.ReconcileBatch)
			supplies.GET("/:id", suppliesH.Get)
			supplies.PUT("/:id", suppliesH.Update)
			supplies.DELETE("/:id", suppliesH.Delete)
			supplies.PATCH("/:id/stock", suppliesH.AdjustStock)
		}

		receipts := barn.Group("/receipts")
		{
			receipts.POST("", middleware.ScanRateLimiter(cfg.ScanRateLimit), receiptsH.Scan)
			receipts.GET("/:scan_id", receiptsH.Get)
			receipts.POST("/:scan_id/lines/:line_id/confirm", receiptsH.ConfirmLine)
			receipts.POST("/:scan_id/lines/:line_id/discard", receiptsH.DiscardLine)
		}
	}

	return r
}
