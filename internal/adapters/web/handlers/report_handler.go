package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	adapterreporting "github.com/netwarden/netwarden/internal/adapters/reporting"
	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
	"github.com/netwarden/netwarden/internal/core/services/audit"
	"github.com/netwarden/netwarden/internal/core/services/reporting"
)

const defaultReportPeriod = 24 * time.Hour

// ReportHandler serves the downloadable incident summary report.
type ReportHandler struct {
	Generator *reporting.IncidentReportGenerator
	Exporter  *adapterreporting.PDFExporter
	Audit     ports.AuditService
}

func NewReportHandler(gen *reporting.IncidentReportGenerator, exp *adapterreporting.PDFExporter, auditSvc ports.AuditService) *ReportHandler {
	return &ReportHandler{Generator: gen, Exporter: exp, Audit: auditSvc}
}

// HandleIncidentReport generates the incident summary for the requested
// period (period_hours, default 24) and streams it as a PDF attachment.
// format=json returns the raw summary instead.
func (h *ReportHandler) HandleIncidentReport(w http.ResponseWriter, r *http.Request) {
	period := defaultReportPeriod
	if raw := r.URL.Query().Get("period_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours < 1 {
			respondError(w, http.StatusBadRequest, "period_hours must be a positive integer")
			return
		}
		period = time.Duration(hours) * time.Hour
	}

	operator := operatorFrom(r)
	ctx := audit.WithActor(r.Context(), operator)

	summary, err := h.Generator.Generate(ctx, time.Now().UTC().Add(-period), operator)
	if err != nil {
		log.Printf("Incident report generation failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	if h.Audit != nil {
		details := fmt.Sprintf("incident summary, period %s", period)
		if err := h.Audit.Log(ctx, domain.ActionReport, summary.Metadata.ID, details); err != nil {
			log.Printf("Audit log for report %s failed: %v", summary.Metadata.ID, err)
		}
	}

	if r.URL.Query().Get("format") == "json" {
		respondJSON(w, http.StatusOK, summary)
		return
	}

	data, err := h.Exporter.ExportIncidentSummary(summary)
	if err != nil {
		log.Printf("Incident report export failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	filename := fmt.Sprintf("netwarden_incidents_%s.pdf", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
