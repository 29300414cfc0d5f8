package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
	"github.com/netwarden/netwarden/internal/core/services/audit"
)

// AnomalyHandler exposes the anomaly lifecycle: listing, inspection, operator
// status transitions, and population stats.
type AnomalyHandler struct {
	Store ports.LifecycleStore
	Audit ports.AuditService
}

func NewAnomalyHandler(store ports.LifecycleStore, auditSvc ports.AuditService) *AnomalyHandler {
	return &AnomalyHandler{Store: store, Audit: auditSvc}
}

type anomalyListResponse struct {
	Anomalies []domain.AnomalyRecord `json:"anomalies"`
	Total     int64                  `json:"total"`
	Page      int                    `json:"page"`
	PageSize  int                    `json:"page_size"`
}

// HandleList returns anomalies matching the query filters, newest first.
func (h *AnomalyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.AnomalyFilter{
		Severity: domain.Severity(q.Get("severity")),
		Status:   domain.AnomalyStatus(q.Get("status")),
		Category: domain.Category(q.Get("category")),
		Source:   q.Get("source"),
		Page:     intParam(q.Get("page"), 1),
		PageSize: intParam(q.Get("page_size"), 50),
	}
	if after := q.Get("seen_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			respondError(w, http.StatusBadRequest, "seen_after must be RFC3339")
			return
		}
		f.SeenAfter = t
	}
	if before := q.Get("seen_before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			respondError(w, http.StatusBadRequest, "seen_before must be RFC3339")
			return
		}
		f.SeenBefore = t
	}

	records, total, err := h.Store.ListAnomalies(r.Context(), f)
	if err != nil {
		log.Printf("List anomalies failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list anomalies")
		return
	}

	respondJSON(w, http.StatusOK, anomalyListResponse{
		Anomalies: records,
		Total:     total,
		Page:      f.Page,
		PageSize:  f.PageSize,
	})
}

// HandleGet returns one anomaly by ID.
func (h *AnomalyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := h.Store.GetAnomaly(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAnomalyNotFound) {
			respondError(w, http.StatusNotFound, "anomaly not found")
			return
		}
		log.Printf("Get anomaly %s failed: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load anomaly")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

type transitionRequest struct {
	Status domain.AnomalyStatus `json:"status"`
	Notes  string               `json:"notes,omitempty"`
}

// HandleTransition applies an operator status change. Illegal edges return
// 409 with the record untouched; closing states require the record to pass
// through "investigating" first.
func (h *AnomalyHandler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Status {
	case domain.StatusInvestigating, domain.StatusResolved, domain.StatusFalsePositive:
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown target status %q", req.Status))
		return
	}

	ctx := audit.WithActor(r.Context(), operatorFrom(r))
	rec, err := h.Store.TransitionAnomaly(ctx, id, req.Status, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAnomalyNotFound):
			respondError(w, http.StatusNotFound, "anomaly not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			respondError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("Transition anomaly %s failed: %v", id, err)
			respondError(w, http.StatusInternalServerError, "failed to update anomaly")
		}
		return
	}

	if h.Audit != nil {
		details := fmt.Sprintf("status -> %s", req.Status)
		if req.Notes != "" {
			details += ": " + req.Notes
		}
		if err := h.Audit.Log(ctx, domain.ActionStatusChange, id, details); err != nil {
			log.Printf("Audit log for anomaly %s failed: %v", id, err)
		}
	}

	respondJSON(w, http.StatusOK, rec)
}

// HandleStats returns the aggregate anomaly summary.
func (h *AnomalyHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.AnomalyStats(r.Context())
	if err != nil {
		log.Printf("Anomaly stats failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// intParam parses a positive integer query value, falling back on def.
func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
