package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netwarden/netwarden/internal/core/domain"
)

// alertStore is an in-memory LifecycleStore covering the dispatcher's needs.
type alertStore struct {
	mu     sync.Mutex
	alerts map[string]*domain.AlertRecord
}

func newAlertStore() *alertStore {
	return &alertStore{alerts: make(map[string]*domain.AlertRecord)}
}

func (s *alertStore) CreateAlertIfNoneOpen(ctx context.Context, alert *domain.AlertRecord) (bool, error) {
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

func (s *alertStore) AcknowledgeAlert(ctx context.Context, id, by string) (*domain.AlertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	if err := a.Acknowledge(by, time.Now().UTC()); err != nil {
		return nil, err
	}
	clone := *a
	return &clone, nil
}

func (s *alertStore) GetAlert(ctx context.Context, id string) (*domain.AlertRecord, error) {
	return nil, domain.ErrAlertNotFound
}
func (s *alertStore) ListAlerts(ctx context.Context, f domain.AlertFilter) ([]domain.AlertRecord, int64, error) {
	return nil, 0, nil
}
func (s *alertStore) FindOpenAnomaly(ctx context.Context, key domain.DedupKey, notBefore time.Time) (*domain.AnomalyRecord, error) {
	return nil, nil
}
func (s *alertStore) CreateAnomaly(ctx context.Context, rec *domain.AnomalyRecord) error { return nil }
func (s *alertStore) UpdateAnomaly(ctx context.Context, rec *domain.AnomalyRecord) error { return nil }
func (s *alertStore) GetAnomaly(ctx context.Context, id string) (*domain.AnomalyRecord, error) {
	return nil, domain.ErrAnomalyNotFound
}
func (s *alertStore) ListAnomalies(ctx context.Context, f domain.AnomalyFilter) ([]domain.AnomalyRecord, int64, error) {
	return nil, 0, nil
}
func (s *alertStore) TransitionAnomaly(ctx context.Context, id string, to domain.AnomalyStatus, notes string) (*domain.AnomalyRecord, error) {
	return nil, domain.ErrAnomalyNotFound
}
func (s *alertStore) AnomalyStats(ctx context.Context) (domain.AnomalyStats, error) {
	return domain.AnomalyStats{}, nil
}
func (s *alertStore) SaveModelInfo(ctx context.Context, info domain.ModelInfo) error { return nil }
func (s *alertStore) ListModelInfo(ctx context.Context) ([]domain.ModelInfo, error)  { return nil, nil }
func (s *alertStore) Close() error                                                   { return nil }

// captureNotifier records emitted events.
type captureNotifier struct {
	mu     sync.Mutex
	alerts []domain.AlertRecord
}

func (n *captureNotifier) NotifyAnomaly(event string, rec domain.AnomalyRecord) {}
func (n *captureNotifier) NotifyAlert(event string, alert domain.AlertRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
}

func anomaly(severity domain.Severity) *domain.AnomalyRecord {
	rec := domain.NewAnomalyRecord(
		domain.DedupKey{Source: "10.0.0.5", Destination: "10.0.0.9", Category: domain.CategoryPortScan},
		0.65, time.Now().UTC(),
	)
	rec.Severity = severity
	return rec
}

func TestDispatcher_BelowFloor(t *testing.T) {
	store := newAlertStore()
	d := NewDispatcher(store, nil, domain.SeverityMedium)

	alert, outcome, err := d.Dispatch(context.Background(), anomaly(domain.SeverityLow))
	require.NoError(t, err)

	assert.Nil(t, alert)
	assert.Equal(t, domain.DispatchBelowFloor, outcome)
	assert.Empty(t, store.alerts)
}

func TestDispatcher_CreatesAlertAtFloor(t *testing.T) {
	store := newAlertStore()
	notifier := &captureNotifier{}
	d := NewDispatcher(store, notifier, domain.SeverityMedium)

	rec := anomaly(domain.SeverityMedium)
	alert, outcome, err := d.Dispatch(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, domain.DispatchCreated, outcome)
	require.NotNil(t, alert)
	assert.Equal(t, rec.ID, alert.AnomalyID)
	assert.Equal(t, domain.AlertActive, alert.Status)
	assert.Equal(t, rec.Severity, alert.Severity)
	assert.Len(t, store.alerts, 1)
	assert.Len(t, notifier.alerts, 1)
}

func TestDispatcher_SuppressesWhileOpenAlertExists(t *testing.T) {
	store := newAlertStore()
	d := NewDispatcher(store, nil, domain.SeverityMedium)
	ctx := context.Background()

	rec := anomaly(domain.SeverityHigh)
	first, outcome, err := d.Dispatch(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, domain.DispatchCreated, outcome)

	// second detection while the alert is still unacknowledged
	alert, outcome, err := d.Dispatch(ctx, rec)
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Equal(t, domain.DispatchSuppressed, outcome)
	assert.Len(t, store.alerts, 1)

	// acknowledging reopens the dispatch path
	_, err = store.AcknowledgeAlert(ctx, first.ID, "alice")
	require.NoError(t, err)

	second, outcome, err := d.Dispatch(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, domain.DispatchCreated, outcome)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestDispatcher_ConcurrentDispatchCreatesOneAlert(t *testing.T) {
	store := newAlertStore()
	d := NewDispatcher(store, nil, domain.SeverityMedium)
	rec := anomaly(domain.SeverityHigh)

	var wg sync.WaitGroup
	var created int64
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, outcome, err := d.Dispatch(context.Background(), rec)
			assert.NoError(t, err)
			if outcome == domain.DispatchCreated {
				atomic.AddInt64(&created, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created)

	open := 0
	for _, a := range store.alerts {
		if a.AnomalyID == rec.ID && a.Status == domain.AlertActive {
			open++
		}
	}
	assert.Equal(t, 1, open)
}

func TestDispatcher_DefaultFloorIsMedium(t *testing.T) {
	d := NewDispatcher(newAlertStore(), nil, "")

	_, outcome, err := d.Dispatch(context.Background(), anomaly(domain.SeverityLow))
	require.NoError(t, err)
	assert.Equal(t, domain.DispatchBelowFloor, outcome)
}

func TestDispatcher_UnknownFloorFallsBackToMedium(t *testing.T) {
	d := NewDispatcher(newAlertStore(), nil, domain.Severity("hgih"))

	_, outcome, err := d.Dispatch(context.Background(), anomaly(domain.SeverityLow))
	require.NoError(t, err)
	assert.Equal(t, domain.DispatchBelowFloor, outcome)

	_, outcome, err = d.Dispatch(context.Background(), anomaly(domain.SeverityMedium))
	require.NoError(t, err)
	assert.Equal(t, domain.DispatchCreated, outcome)
}

func TestMessage(t *testing.T) {
	rec := anomaly(domain.SeverityCritical)
	rec.PeakRisk = 0.92
	rec.Occurrences = 3

	msg := Message(rec)
	assert.Contains(t, msg, "critical")
	assert.Contains(t, msg, "Port scan")
	assert.Contains(t, msg, "10.0.0.5")
	assert.Contains(t, msg, "10.0.0.9")
	assert.Contains(t, msg, "0.92")
	assert.Contains(t, msg, "3x")
}
