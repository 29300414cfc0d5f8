package ensemble

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
	"github.com/netwarden/netwarden/internal/telemetry"
)

// Options tune the fusion policy.
type Options struct {
	// ConfidenceFloor a classifier must clear for its category to win.
	ConfidenceFloor float64
	// DefaultTimeout bounds a model invocation when the model does not
	// declare its own budget.
	DefaultTimeout time.Duration
	// Weights maps model version to fusion weight; absent versions weigh 1.
	Weights map[string]float64
}

// Scorer fans a feature vector out to every active model and fuses the
// surviving outputs into one verdict.
type Scorer struct {
	registry ports.ModelRegistry
	opts     Options
}

func NewScorer(registry ports.ModelRegistry, opts Options) *Scorer {
	if opts.ConfidenceFloor == 0 {
		opts.ConfidenceFloor = 0.5
	}
	if opts.DefaultTimeout == 0 {
		opts.DefaultTimeout = 2 * time.Second
	}
	return &Scorer{registry: registry, opts: opts}
}

type modelResult struct {
	out domain.ModelOutput
	err error
}

// Score invokes every active model concurrently under a bounded timeout.
// A misbehaving model (error, timeout, out-of-range output) is excluded from
// fusion and logged; only the zero-model and all-failed cases are errors.
func (s *Scorer) Score(ctx context.Context, v domain.FeatureVector) (domain.EnsembleResult, error) {
	start := time.Now()
	defer func() { telemetry.ScoringLatency.Observe(time.Since(start).Seconds()) }()

	models := s.registry.Active()
	if len(models) == 0 {
		return domain.EnsembleResult{}, domain.ErrNoModelAvailable
	}

	results := make([]modelResult, len(models))
	var wg sync.WaitGroup
	for i, m := range models {
		wg.Add(1)
		go func(i int, m ports.ScoringModel) {
			defer wg.Done()
			results[i] = s.invoke(ctx, m, v)
		}(i, m)
	}
	wg.Wait()

	contributions := make([]domain.ModelOutput, 0, len(models))
	valid := make([]domain.ModelOutput, 0, len(models))
	for i, res := range results {
		version := models[i].Version()
		switch {
		case res.err != nil:
			reason := "fault"
			if errors.Is(res.err, domain.ErrModelTimeout) {
				reason = "timeout"
			}
			telemetry.ModelFailures.WithLabelValues(version, reason).Inc()
			log.Printf("Model %s excluded from fusion: %v", version, res.err)
			contributions = append(contributions, domain.ModelOutput{
				Version: version,
				Kind:    models[i].Kind(),
				Err:     res.err.Error(),
			})
		case !res.out.Valid():
			telemetry.ModelFailures.WithLabelValues(version, "out_of_range").Inc()
			log.Printf("Model %s excluded from fusion: output outside [0,1] (risk=%f confidence=%f)",
				version, res.out.Risk, res.out.Confidence)
			contributions = append(contributions, domain.ModelOutput{
				Version: version,
				Kind:    models[i].Kind(),
				Err:     "output outside [0,1]",
			})
		default:
			contributions = append(contributions, res.out)
			valid = append(valid, res.out)
		}
	}

	if len(valid) == 0 {
		return domain.EnsembleResult{Contributions: contributions}, domain.ErrEnsembleUnavailable
	}

	result := s.fuse(valid)
	result.Contributions = contributions
	return result, nil
}

// invoke runs one model under its timeout budget.
func (s *Scorer) invoke(ctx context.Context, m ports.ScoringModel, v domain.FeatureVector) modelResult {
	telemetry.ModelInvocations.WithLabelValues(m.Version()).Inc()

	timeout := m.Timeout()
	if timeout <= 0 {
		timeout = s.opts.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan modelResult, 1)
	go func() {
		out, err := m.Score(ctx, v)
		done <- modelResult{out: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			res.err = fmt.Errorf("model %s: %w", m.Version(), res.err)
		}
		return res
	case <-ctx.Done():
		return modelResult{err: fmt.Errorf("model %s: %w", m.Version(), domain.ErrModelTimeout)}
	}
}

// fuse combines surviving outputs: weighted mean risk, and the category of
// the most confident classifier that clears the floor.
func (s *Scorer) fuse(outputs []domain.ModelOutput) domain.EnsembleResult {
	var riskSum, weightSum float64
	for _, o := range outputs {
		w := s.weight(o.Version)
		riskSum += o.Risk * w
		weightSum += w
	}

	result := domain.EnsembleResult{
		Risk:     riskSum / weightSum,
		Category: domain.CategoryUnclassified,
	}

	for _, o := range outputs {
		if o.Kind != domain.ModelKindClassifier || o.Category == "" {
			continue
		}
		if o.Confidence >= s.opts.ConfidenceFloor && o.Confidence > result.Confidence {
			result.Category = o.Category
			result.Confidence = o.Confidence
		}
	}
	return result
}

func (s *Scorer) weight(version string) float64 {
	if w, ok := s.opts.Weights[version]; ok && w > 0 {
		return w
	}
	return 1.0
}

var _ ports.EnsembleScorer = (*Scorer)(nil)
