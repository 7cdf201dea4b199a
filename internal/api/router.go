package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/credencelab/credence/internal/api/handlers"
	mw "github.com/credencelab/credence/internal/api/middleware"
	"github.com/credencelab/credence/internal/calibration"
	"github.com/credencelab/credence/internal/config"
	"github.com/credencelab/credence/internal/domain"
	"github.com/credencelab/credence/internal/ledger"
	"github.com/credencelab/credence/internal/service"
	"github.com/credencelab/credence/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Sweeper      *service.ExpirySweeper
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	claimStore := store.NewClaimStore(db)
	defeaterStore := store.NewDefeaterStore(db)
	evidenceStore := store.NewEvidenceStore(db)
	ledgerStore := ledger.NewPostgresLedger(db)

	// Services
	tracker := calibration.NewTracker(ledgerStore, logger,
		calibration.WithBuckets(config.CalibrationBuckets()),
		calibration.WithPACBounds(config.CalibrationEpsilon(), config.CalibrationDelta()))
	claimSvc := service.NewClaimService(claimStore, defeaterStore, evidenceStore, ledgerStore, logger)
	claimSvc.SetOutcomeRecorder(tracker)
	resolutionSvc := service.NewResolutionService(claimStore, defeaterStore, ledgerStore, logger)
	resolutionSvc.SetMaxIterations(config.ResolveMaxIterations())
	sweeper := service.NewExpirySweeper(evidenceStore, claimSvc, resolutionSvc, logger)
	sweeper.SetInterval(time.Duration(config.EvidenceSweepMinutes()) * time.Minute)

	// Handlers
	claimHandler := handlers.NewClaimHandler(claimSvc)
	resolutionHandler := handlers.NewResolutionHandler(resolutionSvc)
	calibrationHandler := handlers.NewCalibrationHandler(tracker)
	ledgerHandler := handlers.NewLedgerHandler(ledgerStore)
	confidenceHandler := handlers.NewConfidenceHandler()

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Sweeper:   sweeper,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		// Claims
		r.Route("/claims", func(r chi.Router) {
			r.Post("/", claimHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", claimHandler.GetByID)
				r.Post("/evidence", claimHandler.AttachEvidence)
				r.Post("/outcome", claimHandler.VerifyOutcome)
			})
		})

		// Evidence
		r.Post("/evidence", claimHandler.CreateEvidence)

		// Defeaters and resolution
		r.Post("/defeaters", claimHandler.DeclareDefeater)
		r.Post("/resolution/run", resolutionHandler.Run)

		// Calibration
		r.Get("/calibration/{producer}", calibrationHandler.Report)

		// Confidence algebra
		r.Post("/confidence/derive", confidenceHandler.Derive)

		// Ledger and provenance
		r.Get("/ledger", ledgerHandler.Read)
		r.Get("/provenance", ledgerHandler.Provenance)
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that manage lifecycle
// themselves.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy the domain interfaces at compile time.
var (
	_ domain.ClaimStore    = (*store.ClaimStore)(nil)
	_ domain.DefeaterStore = (*store.DefeaterStore)(nil)
	_ domain.EvidenceStore = (*store.EvidenceStore)(nil)
	_ domain.LedgerStore   = (*ledger.PostgresLedger)(nil)
	_ domain.LedgerStore   = (*ledger.MemoryLedger)(nil)
)
