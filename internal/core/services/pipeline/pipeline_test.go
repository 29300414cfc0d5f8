package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/services/detector"
	"github.com/netwarden/netwarden/internal/core/services/dispatch"
	"github.com/netwarden/netwarden/internal/core/services/normalizer"
)

// scriptedScorer returns a fixed sequence of results, one per call.
type scriptedScorer struct {
	mu      sync.Mutex
	results []domain.EnsembleResult
	errs    []error
	calls   int
}

func (s *scriptedScorer) Score(ctx context.Context, v domain.FeatureVector) (domain.EnsembleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return domain.EnsembleResult{}, s.errs[i]
	}
	return s.results[i], nil
}

// pipeStore is an in-memory LifecycleStore for full-pipeline tests.
type pipeStore struct {
	mu        sync.Mutex
	anomalies map[string]*domain.AnomalyRecord
	alerts    map[string]*domain.AlertRecord
}

func newPipeStore() *pipeStore {
	return &pipeStore{
		anomalies: make(map[string]*domain.AnomalyRecord),
		alerts:    make(map[string]*domain.AlertRecord),
	}
}

func (s *pipeStore) FindOpenAnomaly(ctx context.Context, key domain.DedupKey, notBefore time.Time) (*domain.AnomalyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.anomalies {
		if rec.Key() == key && rec.Open() {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *pipeStore) CreateAnomaly(ctx context.Context, rec *domain.AnomalyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *rec
	s.anomalies[rec.ID] = &clone
	return nil
}

func (s *pipeStore) UpdateAnomaly(ctx context.Context, rec *domain.AnomalyRecord) error {
	return s.CreateAnomaly(ctx, rec)
}

func (s *pipeStore) GetAnomaly(ctx context.Context, id string) (*domain.AnomalyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.anomalies[id]; ok {
		clone := *rec
		return &clone, nil
	}
	return nil, domain.ErrAnomalyNotFound
}

func (s *pipeStore) ListAnomalies(ctx context.Context, f domain.AnomalyFilter) ([]domain.AnomalyRecord, int64, error) {
	return nil, 0, nil
}

func (s *pipeStore) TransitionAnomaly(ctx context.Context, id string, to domain.AnomalyStatus, notes string) (*domain.AnomalyRecord, error) {
	return nil, domain.ErrAnomalyNotFound
}

func (s *pipeStore) AnomalyStats(ctx context.Context) (domain.AnomalyStats, error) {
	return domain.AnomalyStats{}, nil
}

func (s *pipeStore) CreateAlertIfNoneOpen(ctx context.Context, alert *domain.AlertRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.AnomalyID == alert.AnomalyID && a.Status == domain.AlertActive {
			return false, nil
		}
	}
	clone := *alert
	s.alerts[alert.ID] = &clone
	return true, nil
}

func (s *pipeStore) GetAlert(ctx context.Context, id string) (*domain.AlertRecord, error) {
	return nil, domain.ErrAlertNotFound
}
func (s *pipeStore) ListAlerts(ctx context.Context, f domain.AlertFilter) ([]domain.AlertRecord, int64, error) {
	return nil, 0, nil
}
func (s *pipeStore) AcknowledgeAlert(ctx context.Context, id, by string) (*domain.AlertRecord, error) {
	return nil, domain.ErrAlertNotFound
}
func (s *pipeStore) SaveModelInfo(ctx context.Context, info domain.ModelInfo) error { return nil }
func (s *pipeStore) ListModelInfo(ctx context.Context) ([]domain.ModelInfo, error)  { return nil, nil }
func (s *pipeStore) Close() error                                                   { return nil }

// eventNotifier records emitted push events in order.
type eventNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *eventNotifier) NotifyAnomaly(event string, rec domain.AnomalyRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *eventNotifier) NotifyAlert(event string, alert domain.AlertRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func flow() domain.FlowRecord {
	return domain.FlowRecord{
		SourceIP:      "10.0.0.5",
		DestinationIP: "10.0.0.9",
		SrcPort:       40000,
		DstPort:       22,
		Protocol:      "tcp",
		Timestamp:     time.Now().UTC(),
	}
}

func newTestPipeline(scorer *scriptedScorer, store *pipeStore, notifier *eventNotifier) *Pipeline {
	recorder := detector.NewRecorder(store, 0)
	dispatcher := dispatch.NewDispatcher(store, notifier, domain.SeverityMedium)
	return New(normalizer.New(), scorer, recorder, dispatcher, notifier)
}

func TestPipeline_EscalatingDetections(t *testing.T) {
	store := newPipeStore()
	notifier := &eventNotifier{}
	scorer := &scriptedScorer{results: []domain.EnsembleResult{
		{Risk: 0.25, Category: domain.CategoryPortScan, Confidence: 0.8},
		{Risk: 0.65, Category: domain.CategoryPortScan, Confidence: 0.85},
		{Risk: 0.9, Category: domain.CategoryPortScan, Confidence: 0.9},
	}}
	p := newTestPipeline(scorer, store, notifier)
	ctx := context.Background()

	// First detection: named attack class records even at low severity,
	// but no alert below the floor.
	v1, err := p.Ingest(ctx, flow())
	require.NoError(t, err)
	require.NotNil(t, v1.Anomaly)
	assert.Equal(t, domain.SeverityLow, v1.Anomaly.Severity)
	assert.Equal(t, domain.DispatchBelowFloor, v1.Outcome)
	assert.Nil(t, v1.Alert)

	// Second detection absorbs, crosses the floor, alerts.
	v2, err := p.Ingest(ctx, flow())
	require.NoError(t, err)
	assert.Equal(t, v1.Anomaly.ID, v2.Anomaly.ID)
	assert.Equal(t, 2, v2.Anomaly.Occurrences)
	assert.Equal(t, domain.SeverityHigh, v2.Anomaly.Severity)
	assert.Equal(t, domain.DispatchCreated, v2.Outcome)
	require.NotNil(t, v2.Alert)

	// Third detection escalates the record but the open alert suppresses.
	v3, err := p.Ingest(ctx, flow())
	require.NoError(t, err)
	assert.Equal(t, v1.Anomaly.ID, v3.Anomaly.ID)
	assert.Equal(t, 3, v3.Anomaly.Occurrences)
	assert.Equal(t, domain.SeverityCritical, v3.Anomaly.Severity)
	assert.Equal(t, 0.9, v3.Anomaly.PeakRisk)
	assert.Equal(t, domain.DispatchSuppressed, v3.Outcome)

	assert.Len(t, store.anomalies, 1)
	assert.Len(t, store.alerts, 1)
	assert.Equal(t, []string{"anomaly:new", "anomaly:update", "alert:new", "anomaly:update"}, notifier.events)
}

func TestPipeline_NormalTrafficProducesNoRecord(t *testing.T) {
	store := newPipeStore()
	scorer := &scriptedScorer{results: []domain.EnsembleResult{
		{Risk: 0.1, Category: domain.CategoryNormal, Confidence: 0.95},
	}}
	p := newTestPipeline(scorer, store, &eventNotifier{})

	v, err := p.Ingest(context.Background(), flow())
	require.NoError(t, err)

	assert.Nil(t, v.Anomaly)
	assert.Nil(t, v.Alert)
	assert.Empty(t, store.anomalies)
}

func TestPipeline_UnclassifiedRecordsOnlyAtMediumRisk(t *testing.T) {
	store := newPipeStore()
	scorer := &scriptedScorer{results: []domain.EnsembleResult{
		{Risk: 0.2, Category: domain.CategoryUnclassified},
		{Risk: 0.45, Category: domain.CategoryUnclassified},
	}}
	p := newTestPipeline(scorer, store, &eventNotifier{})
	ctx := context.Background()

	v, err := p.Ingest(ctx, flow())
	require.NoError(t, err)
	assert.Nil(t, v.Anomaly, "low-risk unclassified traffic is not recorded")

	v, err = p.Ingest(ctx, flow())
	require.NoError(t, err)
	require.NotNil(t, v.Anomaly, "medium-risk unclassified traffic is recorded")
	assert.Equal(t, domain.SeverityMedium, v.Anomaly.Severity)
}

func TestPipeline_SchemaErrorDropsSample(t *testing.T) {
	p := newTestPipeline(&scriptedScorer{}, newPipeStore(), &eventNotifier{})

	bad := flow()
	bad.SourceIP = ""

	_, err := p.Ingest(context.Background(), bad)
	var schemaErr *domain.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestPipeline_EnsembleUnavailablePropagates(t *testing.T) {
	scorer := &scriptedScorer{
		results: []domain.EnsembleResult{{}},
		errs:    []error{domain.ErrEnsembleUnavailable},
	}
	p := newTestPipeline(scorer, newPipeStore(), &eventNotifier{})

	_, err := p.Ingest(context.Background(), flow())
	assert.ErrorIs(t, err, domain.ErrEnsembleUnavailable)
}

func TestPipeline_Predict(t *testing.T) {
	scorer := &scriptedScorer{results: []domain.EnsembleResult{
		{Risk: 0.88, Category: domain.CategoryExfiltration, Confidence: 0.9},
	}}
	store := newPipeStore()
	p := newTestPipeline(scorer, store, &eventNotifier{})

	pred, err := p.Predict(context.Background(), flow())
	require.NoError(t, err)

	assert.True(t, pred.IsAnomaly)
	assert.Equal(t, domain.CategoryExfiltration, pred.Category)
	assert.Equal(t, domain.SeverityCritical, pred.Severity)
	assert.NotEmpty(t, pred.Recommendations)
	assert.Empty(t, store.anomalies, "prediction never records")
}
