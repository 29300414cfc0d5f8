package domain

import (
	"errors"
	"time"
)

// AuditAction represents a type-safe action identifier for the audit log.
type AuditAction string

// Operator actions recorded on the lifecycle boundary.
const (
	ActionStatusChange AuditAction = "ANOMALY_STATUS_CHANGE"
	ActionAlertAck     AuditAction = "ALERT_ACKNOWLEDGED"
	ActionModelRetire  AuditAction = "MODEL_RETIRED"
	ActionModelMetrics AuditAction = "MODEL_METRICS_REPORTED"
	ActionReport       AuditAction = "REPORT_GENERATED"
	ActionInfo         AuditAction = "INFO"
)

var (
	ErrInvalidAction = errors.New("invalid audit action")
)

// AuditLog records a critical operator or system action.
type AuditLog struct {
	ID        uint        `json:"id"`
	Actor     string      `json:"actor"`
	Action    AuditAction `json:"action"`
	Target    string      `json:"target"` // the record affected (anomaly/alert/model ID)
	Details   string      `json:"details"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewAuditLog is the designated factory for valid AuditLog entries.
func NewAuditLog(actor string, action AuditAction, target, details string) (*AuditLog, error) {
	if !isValidAction(action) {
		return nil, ErrInvalidAction
	}
	if actor == "" {
		actor = "system"
	}
	return &AuditLog{
		Actor:     actor,
		Action:    action,
		Target:    target,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}, nil
}

func isValidAction(a AuditAction) bool {
	switch a {
	case ActionStatusChange, ActionAlertAck, ActionModelRetire, ActionModelMetrics, ActionReport, ActionInfo:
		return true
	}
	return false
}
