package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlertNotFound     = errors.New("alert record not found")
	ErrAlertAcknowledged = errors.New("alert already acknowledged")
)

// AlertStatus is the operator workflow state of an alert.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
)

// AlertRecord is the operator-facing artifact derived from one anomaly
// crossing the alerting floor. At most one open (unacknowledged) alert exists
// per anomaly at any time.
type AlertRecord struct {
	ID             string      `json:"id"`
	AnomalyID      string      `json:"anomaly_id"`
	Severity       Severity    `json:"severity"`
	Message        string      `json:"message"`
	Status         AlertStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	AcknowledgedBy string      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
}

// NewAlertRecord creates an active alert bound to a live anomaly.
func NewAlertRecord(anomalyID string, severity Severity, message string, at time.Time) *AlertRecord {
	return &AlertRecord{
		ID:        uuid.New().String(),
		AnomalyID: anomalyID,
		Severity:  severity,
		Message:   message,
		Status:    AlertActive,
		CreatedAt: at,
	}
}

// Acknowledge marks the alert as handled. Acknowledgment is monotonic: an
// already-acknowledged alert rejects a second ack, and the linked anomaly's
// status is untouched.
func (a *AlertRecord) Acknowledge(by string, at time.Time) error {
	if a.Status == AlertAcknowledged {
		return fmt.Errorf("alert %s: %w", a.ID, ErrAlertAcknowledged)
	}
	a.Status = AlertAcknowledged
	a.AcknowledgedBy = by
	a.AcknowledgedAt = &at
	return nil
}

// AlertFilter selects alerts on the lifecycle query boundary.
type AlertFilter struct {
	Severity      Severity
	Status        AlertStatus
	AnomalyID     string
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Page          int
	PageSize      int
}

// DispatchOutcome records what the dispatcher decided for one anomaly.
type DispatchOutcome string

const (
	DispatchCreated    DispatchOutcome = "created"
	DispatchSuppressed DispatchOutcome = "suppressed" // open unacked alert exists, recorded no-op
	DispatchBelowFloor DispatchOutcome = "below_floor"
)
