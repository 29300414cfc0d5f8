package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
	"github.com/netwarden/netwarden/internal/core/services/audit"
)

// AlertHandler exposes the alert workflow: listing and acknowledgment.
type AlertHandler struct {
	Store    ports.LifecycleStore
	Audit    ports.AuditService
	Notifier ports.Notifier
}

func NewAlertHandler(store ports.LifecycleStore, auditSvc ports.AuditService, notifier ports.Notifier) *AlertHandler {
	return &AlertHandler{Store: store, Audit: auditSvc, Notifier: notifier}
}

type alertListResponse struct {
	Alerts   []domain.AlertRecord `json:"alerts"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// HandleList returns alerts matching the query filters, newest first.
func (h *AlertHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.AlertFilter{
		Severity:  domain.Severity(q.Get("severity")),
		Status:    domain.AlertStatus(q.Get("status")),
		AnomalyID: q.Get("anomaly_id"),
		Page:      intParam(q.Get("page"), 1),
		PageSize:  intParam(q.Get("page_size"), 50),
	}
	if after := q.Get("created_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			respondError(w, http.StatusBadRequest, "created_after must be RFC3339")
			return
		}
		f.CreatedAfter = t
	}

	alerts, total, err := h.Store.ListAlerts(r.Context(), f)
	if err != nil {
		log.Printf("List alerts failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	respondJSON(w, http.StatusOK, alertListResponse{
		Alerts:   alerts,
		Total:    total,
		Page:     f.Page,
		PageSize: f.PageSize,
	})
}

// HandleGet returns one alert by ID.
func (h *AlertHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	alert, err := h.Store.GetAlert(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			respondError(w, http.StatusNotFound, "alert not found")
			return
		}
		log.Printf("Get alert %s failed: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load alert")
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

// HandleAcknowledge marks an alert as handled by the calling operator.
// Acknowledgment is monotonic: a second ack returns 409. The linked anomaly's
// lifecycle is untouched.
func (h *AlertHandler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	operator := operatorFrom(r)

	ctx := audit.WithActor(r.Context(), operator)
	alert, err := h.Store.AcknowledgeAlert(ctx, id, operator)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlertNotFound):
			respondError(w, http.StatusNotFound, "alert not found")
		case errors.Is(err, domain.ErrAlertAcknowledged):
			respondError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("Acknowledge alert %s failed: %v", id, err)
			respondError(w, http.StatusInternalServerError, "failed to acknowledge alert")
		}
		return
	}

	if h.Audit != nil {
		if err := h.Audit.Log(ctx, domain.ActionAlertAck, id, "acknowledged by "+operator); err != nil {
			log.Printf("Audit log for alert %s failed: %v", id, err)
		}
	}
	if h.Notifier != nil {
		h.Notifier.NotifyAlert("alert:ack", *alert)
	}

	respondJSON(w, http.StatusOK, alert)
}
