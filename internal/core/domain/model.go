package domain

import (
	"errors"
	"fmt"
	"time"
)

// Scoring errors surfaced by the ensemble. Per-model faults are absorbed
// locally; only the two availability errors propagate to the ingestion caller.
var (
	ErrNoModelAvailable    = errors.New("no scoring model available")
	ErrEnsembleUnavailable = errors.New("all scoring models failed")
	ErrModelTimeout        = errors.New("model inference timed out")
	ErrModelNotFound       = errors.New("model version not found")
)

// ModelKind distinguishes the scoring capability variants.
type ModelKind string

const (
	ModelKindOutlier    ModelKind = "outlier"    // unsupervised, risk only
	ModelKindClassifier ModelKind = "classifier" // supervised, risk + category
)

// Category is a predicted attack class. CategoryUnclassified is used when no
// classifier clears the confidence floor, regardless of risk magnitude.
type Category string

const (
	CategoryNormal          Category = "normal"
	CategoryDDoS            Category = "ddos_attack"
	CategoryPortScan        Category = "port_scan"
	CategoryMalware         Category = "malware"
	CategoryBotnet          Category = "botnet"
	CategoryExfiltration    Category = "data_exfiltration"
	CategoryUnauthorized    Category = "unauthorized_access"
	CategoryProtocolAnomaly Category = "protocol_anomaly"
	CategoryUnclassified    Category = "unclassified"
)

// Categories lists every attack class a classifier may emit.
var Categories = []Category{
	CategoryDDoS, CategoryPortScan, CategoryMalware, CategoryBotnet,
	CategoryExfiltration, CategoryUnauthorized, CategoryProtocolAnomaly,
}

// ModelOutput is the raw result of one model's scoring pass.
type ModelOutput struct {
	Version    string    `json:"version"`
	Kind       ModelKind `json:"kind"`
	Risk       float64   `json:"risk"`               // [0,1]
	Category   Category  `json:"category,omitempty"`
	Confidence float64   `json:"confidence"`         // [0,1]
	Err        string    `json:"error,omitempty"`    // set when the model was excluded
}

// Valid reports whether the output satisfies the [0,1] range invariants.
// Violating outputs are excluded from fusion, never clamped.
func (o ModelOutput) Valid() bool {
	return o.Risk >= 0 && o.Risk <= 1 && o.Confidence >= 0 && o.Confidence <= 1
}

// EnsembleResult is the fused output of one scoring pass. It is ephemeral:
// produced per feature vector and consumed immediately by the recorder.
type EnsembleResult struct {
	Risk          float64       `json:"risk"`
	Category      Category      `json:"category"`
	Confidence    float64       `json:"confidence"` // confidence of the winning classifier, 0 if unclassified
	Contributions []ModelOutput `json:"contributions"`
}

// ModelMetrics are performance figures reported by the training collaborator.
type ModelMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// ModelInfo is registry metadata for a registered model version.
// The registry holds no feature data, only handles and metadata.
type ModelInfo struct {
	Version   string       `json:"version"`
	Kind      ModelKind    `json:"kind"`
	TrainedAt time.Time    `json:"trained_at"`
	Metrics   ModelMetrics `json:"metrics"`
	Active    bool         `json:"active"`
}

// Validate checks the identity fields required for registration.
func (m ModelInfo) Validate() error {
	if m.Version == "" {
		return fmt.Errorf("model info: version is required")
	}
	switch m.Kind {
	case ModelKindOutlier, ModelKindClassifier:
		return nil
	default:
		return fmt.Errorf("model info: unknown kind %q", m.Kind)
	}
}
