package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
	"github.com/netwarden/netwarden/internal/core/services/normalizer"
	"github.com/netwarden/netwarden/internal/telemetry"
)

// Pipeline is the detection core: it turns raw flow records into classified,
// deduplicated anomaly records and operator alerts. Each stage failure keeps
// its own error identity so callers can distinguish a dropped sample from an
// unavailable ensemble; no failure is ever converted into a benign verdict.
type Pipeline struct {
	normalizer *normalizer.Normalizer
	scorer     ports.EnsembleScorer
	recorder   ports.AnomalyRecorder
	dispatcher ports.AlertDispatcher
	notifier   ports.Notifier
}

func New(n *normalizer.Normalizer, s ports.EnsembleScorer, r ports.AnomalyRecorder, d ports.AlertDispatcher, notifier ports.Notifier) *Pipeline {
	return &Pipeline{
		normalizer: n,
		scorer:     s,
		recorder:   r,
		dispatcher: d,
		notifier:   notifier,
	}
}

// Verdict is the ingestion outcome for one accepted flow record.
type Verdict struct {
	Result  domain.EnsembleResult  `json:"result"`
	Anomaly *domain.AnomalyRecord  `json:"anomaly,omitempty"`
	Alert   *domain.AlertRecord    `json:"alert,omitempty"`
	Outcome domain.DispatchOutcome `json:"dispatch_outcome,omitempty"`
}

// Ingest runs one raw flow record through the full pipeline.
// SchemaError means the sample was dropped; ErrNoModelAvailable and
// ErrEnsembleUnavailable mean the sample went unscored and the caller must
// decide whether to retry, queue, or drop.
func (p *Pipeline) Ingest(ctx context.Context, raw domain.FlowRecord) (Verdict, error) {
	fv, err := p.normalizer.Normalize(raw)
	if err != nil {
		var schemaErr *domain.SchemaError
		if errors.As(err, &schemaErr) {
			telemetry.FlowsRejected.WithLabelValues(schemaErr.Field).Inc()
		}
		return Verdict{}, err
	}
	telemetry.FlowsIngested.Inc()

	res, err := p.scorer.Score(ctx, fv)
	if err != nil {
		return Verdict{}, err
	}

	verdict := Verdict{Result: res}
	if !anomalous(res) {
		return verdict, nil
	}

	rec, err := p.recorder.Record(ctx, res, fv.Source, fv.Destination, fv.Timestamp)
	if err != nil {
		return verdict, fmt.Errorf("record anomaly: %w", err)
	}
	existing := rec.Occurrences > 1
	verdict.Anomaly = rec

	if p.notifier != nil {
		event := "anomaly:new"
		if existing {
			event = "anomaly:update"
		}
		p.notifier.NotifyAnomaly(event, *rec)
	}

	alert, outcome, err := p.dispatcher.Dispatch(ctx, rec)
	if err != nil {
		return verdict, fmt.Errorf("dispatch alert: %w", err)
	}
	verdict.Alert = alert
	verdict.Outcome = outcome
	return verdict, nil
}

// Prediction is the scoring-boundary response: verdict plus operator guidance.
type Prediction struct {
	IsAnomaly       bool                 `json:"is_anomaly"`
	Risk            float64              `json:"risk_score"`
	Category        domain.Category      `json:"category"`
	Confidence      float64              `json:"confidence_score"`
	Severity        domain.Severity      `json:"severity"`
	Recommendations []string             `json:"recommendations"`
	Contributions   []domain.ModelOutput `json:"contributions"`
}

// Predict scores a raw flow record without recording or alerting.
func (p *Pipeline) Predict(ctx context.Context, raw domain.FlowRecord) (Prediction, error) {
	fv, err := p.normalizer.Normalize(raw)
	if err != nil {
		return Prediction{}, err
	}

	res, err := p.scorer.Score(ctx, fv)
	if err != nil {
		return Prediction{}, err
	}

	return Prediction{
		IsAnomaly:       anomalous(res),
		Risk:            res.Risk,
		Category:        res.Category,
		Confidence:      res.Confidence,
		Severity:        domain.SeverityForRisk(res.Risk),
		Recommendations: domain.RecommendedActions(res.Category, res.Risk),
		Contributions:   res.Contributions,
	}, nil
}

// anomalous decides whether a fused verdict warrants a record. A confident
// "normal" classification is benign; otherwise any named attack class counts,
// as does unclassified traffic at medium risk or above.
func anomalous(res domain.EnsembleResult) bool {
	switch res.Category {
	case domain.CategoryNormal:
		return false
	case domain.CategoryUnclassified, "":
		return domain.SeverityForRisk(res.Risk) != domain.SeverityLow
	default:
		return true
	}
}
