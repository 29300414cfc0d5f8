package ports

import (
	"context"
	"time"

	"github.com/netwarden/netwarden/internal/core/domain"
)

// ScoringModel is the opaque scoring capability held by the registry.
// Implementations must honor ctx cancellation; Timeout is the per-invocation
// inference budget the ensemble enforces.
type ScoringModel interface {
	Score(ctx context.Context, v domain.FeatureVector) (domain.ModelOutput, error)
	Version() string
	Kind() domain.ModelKind
	Timeout() time.Duration
}

// ModelRegistry owns the set of registered scoring models. The active set is
// a copy-on-write snapshot: retiring a version never affects in-flight calls.
type ModelRegistry interface {
	Register(model ScoringModel, info domain.ModelInfo) error
	Retire(version string) error
	Active() []ScoringModel
	Info(version string) (domain.ModelInfo, error)
	List() []domain.ModelInfo
	ReportMetrics(version string, metrics domain.ModelMetrics) error
}

// EnsembleScorer fuses the active models' outputs into one verdict.
type EnsembleScorer interface {
	Score(ctx context.Context, v domain.FeatureVector) (domain.EnsembleResult, error)
}

// AnomalyRecorder merges detections into anomaly records via the dedup key.
type AnomalyRecorder interface {
	Record(ctx context.Context, res domain.EnsembleResult, source, destination string, ts time.Time) (*domain.AnomalyRecord, error)
}

// AlertDispatcher decides whether and what to alert for an anomaly.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, rec *domain.AnomalyRecord) (*domain.AlertRecord, domain.DispatchOutcome, error)
}

// LifecycleStore holds the authoritative anomaly and alert state and enforces
// legal transitions. Read-modify-write helpers are transactional.
type LifecycleStore interface {
	// Anomalies
	FindOpenAnomaly(ctx context.Context, key domain.DedupKey, notBefore time.Time) (*domain.AnomalyRecord, error)
	CreateAnomaly(ctx context.Context, rec *domain.AnomalyRecord) error
	UpdateAnomaly(ctx context.Context, rec *domain.AnomalyRecord) error
	GetAnomaly(ctx context.Context, id string) (*domain.AnomalyRecord, error)
	ListAnomalies(ctx context.Context, f domain.AnomalyFilter) ([]domain.AnomalyRecord, int64, error)
	TransitionAnomaly(ctx context.Context, id string, to domain.AnomalyStatus, notes string) (*domain.AnomalyRecord, error)
	AnomalyStats(ctx context.Context) (domain.AnomalyStats, error)

	// Alerts. CreateAlertIfNoneOpen atomically creates the alert unless an
	// unacknowledged alert already exists for the same anomaly; it reports
	// whether the alert was created.
	CreateAlertIfNoneOpen(ctx context.Context, alert *domain.AlertRecord) (bool, error)
	GetAlert(ctx context.Context, id string) (*domain.AlertRecord, error)
	ListAlerts(ctx context.Context, f domain.AlertFilter) ([]domain.AlertRecord, int64, error)
	AcknowledgeAlert(ctx context.Context, id, by string) (*domain.AlertRecord, error)

	// Model metadata (operator visibility, not model code)
	SaveModelInfo(ctx context.Context, info domain.ModelInfo) error
	ListModelInfo(ctx context.Context) ([]domain.ModelInfo, error)

	Close() error
}

// AuditRepository persists the operator action trail.
type AuditRepository interface {
	SaveAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

// Notifier is the push boundary: newly created or updated records are emitted
// as they occur, at-least-once. Delivery must never block the caller.
type Notifier interface {
	NotifyAnomaly(event string, rec domain.AnomalyRecord)
	NotifyAlert(event string, alert domain.AlertRecord)
}

// AuditService records operator actions with actor attribution from ctx.
type AuditService interface {
	Log(ctx context.Context, action domain.AuditAction, target, details string) error
	GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}
