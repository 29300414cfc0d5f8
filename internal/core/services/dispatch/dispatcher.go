package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
	"github.com/netwarden/netwarden/internal/telemetry"
)

// Dispatcher decides whether and what to alert for an anomaly. Notification
// fan-out is delegated to the notifier and is fire-and-forget: a slow or
// failing notifier never stalls the ingestion path.
type Dispatcher struct {
	store    ports.LifecycleStore
	notifier ports.Notifier
	floor    domain.Severity
}

func NewDispatcher(store ports.LifecycleStore, notifier ports.Notifier, floor domain.Severity) *Dispatcher {
	switch floor {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical:
	default:
		if floor != "" {
			log.Printf("Unknown alerting floor %q, falling back to medium", floor)
		}
		floor = domain.SeverityMedium
	}
	return &Dispatcher{store: store, notifier: notifier, floor: floor}
}

// Dispatch creates an alert when the anomaly's severity is at or above the
// alerting floor and no open, unacknowledged alert already exists for it.
// Re-triggering an already-alerted anomaly is a recorded no-op, not an error.
// The existence check and the insert are one store transaction, so concurrent
// dispatches for the same anomaly create at most one alert.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *domain.AnomalyRecord) (*domain.AlertRecord, domain.DispatchOutcome, error) {
	if !rec.Severity.AtLeast(d.floor) {
		telemetry.AlertsDispatched.WithLabelValues(string(domain.DispatchBelowFloor)).Inc()
		return nil, domain.DispatchBelowFloor, nil
	}

	alert := domain.NewAlertRecord(rec.ID, rec.Severity, Message(rec), time.Now().UTC())
	created, err := d.store.CreateAlertIfNoneOpen(ctx, alert)
	if err != nil {
		return nil, "", fmt.Errorf("create alert: %w", err)
	}
	if !created {
		telemetry.AlertsDispatched.WithLabelValues(string(domain.DispatchSuppressed)).Inc()
		log.Printf("Alert suppressed for anomaly %s: open alert exists", rec.ID)
		return nil, domain.DispatchSuppressed, nil
	}

	telemetry.AlertsDispatched.WithLabelValues(string(domain.DispatchCreated)).Inc()
	if d.notifier != nil {
		d.notifier.NotifyAlert("alert:new", *alert)
	}
	return alert, domain.DispatchCreated, nil
}

// categoryTitles renders attack classes for the human message.
var categoryTitles = map[domain.Category]string{
	domain.CategoryDDoS:            "DDoS attack",
	domain.CategoryPortScan:        "Port scan",
	domain.CategoryMalware:         "Malware activity",
	domain.CategoryBotnet:          "Botnet communication",
	domain.CategoryExfiltration:    "Data exfiltration",
	domain.CategoryUnauthorized:    "Unauthorized access",
	domain.CategoryProtocolAnomaly: "Protocol anomaly",
	domain.CategoryUnclassified:    "Anomalous traffic",
}

// Message builds the operator-facing alert text keyed by category and severity.
func Message(rec *domain.AnomalyRecord) string {
	title, ok := categoryTitles[rec.Category]
	if !ok {
		title = "Anomalous traffic"
	}
	return fmt.Sprintf("[%s] %s detected from %s to %s (peak risk %.2f, seen %dx)",
		rec.Severity, title, rec.Source, rec.Destination, rec.PeakRisk, rec.Occurrences)
}

var _ ports.AlertDispatcher = (*Dispatcher)(nil)
