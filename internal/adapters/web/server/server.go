package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	adapterreporting "github.com/netwarden/netwarden/internal/adapters/reporting"
	"github.com/netwarden/netwarden/internal/adapters/web/handlers"
	"github.com/netwarden/netwarden/internal/adapters/web/websocket"
	"github.com/netwarden/netwarden/internal/core/ports"
	"github.com/netwarden/netwarden/internal/core/services/pipeline"
	"github.com/netwarden/netwarden/internal/core/services/reporting"
)

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr      string
	WSManager *websocket.WSManager

	IngestHandler  *handlers.IngestHandler
	PredictHandler *handlers.PredictHandler
	AnomalyHandler *handlers.AnomalyHandler
	AlertHandler   *handlers.AlertHandler
	ModelHandler   *handlers.ModelHandler
	AuditHandler   *handlers.AuditHandler
	ReportHandler  *handlers.ReportHandler

	IngestRateLimit int // requests per minute per client, 0 disables

	srv *http.Server
}

// NewServer wires the handler set over the detection core.
func NewServer(
	addr string,
	pipe *pipeline.Pipeline,
	store ports.LifecycleStore,
	registry ports.ModelRegistry,
	auditSvc ports.AuditService,
	wsManager *websocket.WSManager,
	ingestRateLimit int,
) *Server {
	reportGen := reporting.NewIncidentReportGenerator(store)

	return &Server{
		Addr:      addr,
		WSManager: wsManager,

		IngestHandler:  handlers.NewIngestHandler(pipe),
		PredictHandler: handlers.NewPredictHandler(pipe),
		AnomalyHandler: handlers.NewAnomalyHandler(store, auditSvc),
		AlertHandler:   handlers.NewAlertHandler(store, auditSvc, wsManager),
		ModelHandler:   handlers.NewModelHandler(registry, auditSvc),
		AuditHandler:   handlers.NewAuditHandler(auditSvc),
		ReportHandler:  handlers.NewReportHandler(reportGen, adapterreporting.NewPDFExporter(), auditSvc),

		IngestRateLimit: ingestRateLimit,
	}
}

// Run starts the server and the websocket broadcaster, then blocks until ctx
// is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.WSManager.Start()

	handler := SetupRoutes(s)
	instrumentedHandler := otelhttp.NewHandler(handler, "netwarden-server")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumentedHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Web server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Web server shutdown error: %v", err)
		}
		s.WSManager.Stop()
	}()

	log.Printf("Web server listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
