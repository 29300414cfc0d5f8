package ensemble

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
	"github.com/netwarden/netwarden/internal/core/services/registry"
)

// fakeModel is a scriptable scoring model.
type fakeModel struct {
	version string
	kind    domain.ModelKind
	out     domain.ModelOutput
	err     error
	delay   time.Duration
	timeout time.Duration
}

func (m *fakeModel) Score(ctx context.Context, v domain.FeatureVector) (domain.ModelOutput, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.ModelOutput{}, ctx.Err()
		}
	}
	if m.err != nil {
		return domain.ModelOutput{}, m.err
	}
	out := m.out
	out.Version = m.version
	out.Kind = m.kind
	return out, nil
}

func (m *fakeModel) Version() string        { return m.version }
func (m *fakeModel) Kind() domain.ModelKind { return m.kind }
func (m *fakeModel) Timeout() time.Duration { return m.timeout }

func registryWith(t *testing.T, models ...ports.ScoringModel) *registry.ModelRegistry {
	t.Helper()
	r := registry.NewModelRegistry(nil)
	for _, m := range models {
		err := r.Register(m, domain.ModelInfo{Version: m.Version(), Kind: m.Kind(), TrainedAt: time.Now()})
		require.NoError(t, err)
	}
	return r
}

func vector() domain.FeatureVector {
	return domain.FeatureVector{
		Features:    map[string]float64{"bytes_in": 100},
		Source:      "10.0.0.1",
		Destination: "10.0.0.2",
		Timestamp:   time.Now().UTC(),
	}
}

func TestScorer_NoModels(t *testing.T) {
	s := NewScorer(registry.NewModelRegistry(nil), Options{})

	_, err := s.Score(context.Background(), vector())
	assert.ErrorIs(t, err, domain.ErrNoModelAvailable)
}

func TestScorer_FusesWeightedMeanRisk(t *testing.T) {
	outlier := &fakeModel{
		version: "out-v1", kind: domain.ModelKindOutlier,
		out: domain.ModelOutput{Risk: 0.8, Confidence: 0.6},
	}
	classifier := &fakeModel{
		version: "clf-v1", kind: domain.ModelKindClassifier,
		out: domain.ModelOutput{Risk: 0.4, Confidence: 0.9, Category: domain.CategoryPortScan},
	}
	s := NewScorer(registryWith(t, outlier, classifier), Options{
		Weights: map[string]float64{"out-v1": 1, "clf-v1": 3},
	})

	res, err := s.Score(context.Background(), vector())
	require.NoError(t, err)

	// (0.8*1 + 0.4*3) / 4 = 0.5
	assert.InDelta(t, 0.5, res.Risk, 1e-9)
	assert.Equal(t, domain.CategoryPortScan, res.Category)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Len(t, res.Contributions, 2)
}

func TestScorer_ConfidenceFloor(t *testing.T) {
	classifier := &fakeModel{
		version: "clf-v1", kind: domain.ModelKindClassifier,
		out: domain.ModelOutput{Risk: 0.7, Confidence: 0.4, Category: domain.CategoryDDoS},
	}
	s := NewScorer(registryWith(t, classifier), Options{ConfidenceFloor: 0.5})

	res, err := s.Score(context.Background(), vector())
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryUnclassified, res.Category, "below-floor classification must not win")
	assert.Equal(t, 0.0, res.Confidence)
	assert.InDelta(t, 0.7, res.Risk, 1e-9, "risk still fuses even when unclassified")
}

func TestScorer_MostConfidentClassifierWins(t *testing.T) {
	a := &fakeModel{
		version: "clf-a", kind: domain.ModelKindClassifier,
		out: domain.ModelOutput{Risk: 0.6, Confidence: 0.7, Category: domain.CategoryDDoS},
	}
	b := &fakeModel{
		version: "clf-b", kind: domain.ModelKindClassifier,
		out: domain.ModelOutput{Risk: 0.6, Confidence: 0.85, Category: domain.CategoryBotnet},
	}
	s := NewScorer(registryWith(t, a, b), Options{ConfidenceFloor: 0.5})

	res, err := s.Score(context.Background(), vector())
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryBotnet, res.Category)
	assert.Equal(t, 0.85, res.Confidence)
}

func TestScorer_ExcludesFailingModel(t *testing.T) {
	healthy := &fakeModel{
		version: "ok-v1", kind: domain.ModelKindOutlier,
		out: domain.ModelOutput{Risk: 0.6, Confidence: 0.5},
	}
	broken := &fakeModel{
		version: "broken-v1", kind: domain.ModelKindClassifier,
		err: errors.New("inference backend gone"),
	}
	s := NewScorer(registryWith(t, healthy, broken), Options{})

	res, err := s.Score(context.Background(), vector())
	require.NoError(t, err)

	assert.InDelta(t, 0.6, res.Risk, 1e-9, "only the healthy model contributes")
	require.Len(t, res.Contributions, 2)

	var excluded *domain.ModelOutput
	for i := range res.Contributions {
		if res.Contributions[i].Version == "broken-v1" {
			excluded = &res.Contributions[i]
		}
	}
	require.NotNil(t, excluded)
	assert.NotEmpty(t, excluded.Err)
}

func TestScorer_ExcludesOutOfRangeOutput(t *testing.T) {
	healthy := &fakeModel{
		version: "ok-v1", kind: domain.ModelKindOutlier,
		out: domain.ModelOutput{Risk: 0.2, Confidence: 0.5},
	}
	wild := &fakeModel{
		version: "wild-v1", kind: domain.ModelKindOutlier,
		out: domain.ModelOutput{Risk: 1.7, Confidence: 0.5},
	}
	s := NewScorer(registryWith(t, healthy, wild), Options{})

	res, err := s.Score(context.Background(), vector())
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res.Risk, 1e-9, "out-of-range output is excluded, never clamped")
}

func TestScorer_ExcludesTimedOutModel(t *testing.T) {
	fast := &fakeModel{
		version: "fast-v1", kind: domain.ModelKindOutlier,
		out: domain.ModelOutput{Risk: 0.3, Confidence: 0.5},
	}
	slow := &fakeModel{
		version: "slow-v1", kind: domain.ModelKindOutlier,
		out:     domain.ModelOutput{Risk: 0.9, Confidence: 0.9},
		delay:   200 * time.Millisecond,
		timeout: 20 * time.Millisecond,
	}
	s := NewScorer(registryWith(t, fast, slow), Options{})

	res, err := s.Score(context.Background(), vector())
	require.NoError(t, err)
	assert.InDelta(t, 0.3, res.Risk, 1e-9)
}

func TestScorer_AllModelsFailed(t *testing.T) {
	broken := &fakeModel{
		version: "broken-v1", kind: domain.ModelKindOutlier,
		err: errors.New("boom"),
	}
	s := NewScorer(registryWith(t, broken), Options{})

	_, err := s.Score(context.Background(), vector())
	assert.ErrorIs(t, err, domain.ErrEnsembleUnavailable)
}
