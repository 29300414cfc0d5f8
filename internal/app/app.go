package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/netwarden/netwarden/internal/adapters/scoring"
	"github.com/netwarden/netwarden/internal/adapters/storage"
	webserver "github.com/netwarden/netwarden/internal/adapters/web/server"
	"github.com/netwarden/netwarden/internal/adapters/web/websocket"
	"github.com/netwarden/netwarden/internal/config"
	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/services/audit"
	"github.com/netwarden/netwarden/internal/core/services/detector"
	"github.com/netwarden/netwarden/internal/core/services/dispatch"
	"github.com/netwarden/netwarden/internal/core/services/ensemble"
	"github.com/netwarden/netwarden/internal/core/services/normalizer"
	"github.com/netwarden/netwarden/internal/core/services/pipeline"
	"github.com/netwarden/netwarden/internal/core/services/registry"
	"github.com/netwarden/netwarden/internal/mock"
	"github.com/netwarden/netwarden/internal/telemetry"
)

// Application holds the core components of the detection service. It acts as
// the facade for the entire system, orchestrating services and infrastructure.
type Application struct {
	Config       *config.Config
	Store        *storage.SQLiteStore
	Registry     *registry.ModelRegistry
	Pipeline     *pipeline.Pipeline
	AuditService *audit.AuditService
	WSManager    *websocket.WSManager
	WebServer    *webserver.Server
}

// New creates an Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}
	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()

	store, err := app.initStorage()
	if err != nil {
		return err
	}
	app.Store = store

	app.AuditService = audit.NewAuditService(store)

	app.Registry = registry.NewModelRegistry(store)
	if err := app.registerDefaultModels(); err != nil {
		return err
	}

	app.WSManager = websocket.NewWSManager()

	scorer := ensemble.NewScorer(app.Registry, ensemble.Options{
		ConfidenceFloor: app.Config.Detection.ConfidenceFloor,
		DefaultTimeout:  app.Config.Detection.ModelTimeout,
		Weights:         app.Config.Detection.Weights,
	})
	recorder := detector.NewRecorder(store, app.Config.Detection.DedupWindow)
	dispatcher := dispatch.NewDispatcher(store, app.WSManager, domain.Severity(app.Config.Detection.AlertingFloor))

	app.Pipeline = pipeline.New(normalizer.New(), scorer, recorder, dispatcher, app.WSManager)

	app.WebServer = webserver.NewServer(
		app.Config.Addr,
		app.Pipeline,
		store,
		app.Registry,
		app.AuditService,
		app.WSManager,
		app.Config.IngestRate,
	)

	return nil
}

func (app *Application) initStorage() (*storage.SQLiteStore, error) {
	if dir := filepath.Dir(app.Config.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStore(app.Config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	return store, nil
}

// registerDefaultModels loads the built-in scoring models. Additional versions
// are produced offline by the training collaborator and registered at startup.
func (app *Application) registerDefaultModels() error {
	timeout := app.Config.Detection.ModelTimeout

	outlier := scoring.NewOutlierModel("iforest-v1", scoring.DefaultBaseline(), timeout)
	if err := app.Registry.Register(outlier, domain.ModelInfo{
		Version:   "iforest-v1",
		Kind:      domain.ModelKindOutlier,
		TrainedAt: time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
		Metrics:   domain.ModelMetrics{Accuracy: 0.91, Precision: 0.88, Recall: 0.86},
	}); err != nil {
		return fmt.Errorf("register outlier model: %w", err)
	}

	classifier := scoring.NewClassifierModel("rf-classifier-v1", timeout)
	if err := app.Registry.Register(classifier, domain.ModelInfo{
		Version:   "rf-classifier-v1",
		Kind:      domain.ModelKindClassifier,
		TrainedAt: time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
		Metrics:   domain.ModelMetrics{Accuracy: 0.94, Precision: 0.92, Recall: 0.9},
	}); err != nil {
		return fmt.Errorf("register classifier model: %w", err)
	}

	return nil
}

// Run starts the application components and blocks until ctx is cancelled or
// a component fails.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting netwarden components...")

	errChan := make(chan error, 1)

	go func() {
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	if app.Config.MockMode {
		slog.Info("Mock mode active: generating synthetic traffic", "rate", app.Config.MockRate)
		app.runMockPump(ctx)
	}

	slog.Info("netwarden ready. Press Ctrl+C to terminate.")

	select {
	case <-ctx.Done():
		slog.Info("Termination signal received")
	case err := <-errChan:
		return err
	}

	return app.cleanup()
}

// runMockPump feeds generated flows through the pipeline on a worker pool.
func (app *Application) runMockPump(ctx context.Context) {
	gen := mock.NewFlowGenerator(40, 0.15)
	flows := make(chan domain.FlowRecord, 100)

	go func() {
		ticker := time.NewTicker(app.Config.MockRate)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(flows)
				return
			case <-ticker.C:
				select {
				case flows <- gen.Next():
				default:
				}
			}
		}
	}()

	numWorkers := runtime.NumCPU()
	slog.Info("Starting ingest worker pool", "count", numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			for raw := range flows {
				if _, err := app.Pipeline.Ingest(ctx, raw); err != nil {
					if app.Config.Debug {
						log.Printf("Mock ingest error: %v", err)
					}
				}
			}
		}()
	}
}

func (app *Application) cleanup() error {
	slog.Info("Cleaning up resources...")
	if app.Store != nil {
		return app.Store.Close()
	}
	return nil
}
