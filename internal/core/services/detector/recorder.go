package detector

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
	"github.com/netwarden/netwarden/internal/telemetry"
)

// lockStripes bounds lock table size under high key cardinality.
const lockStripes = 256

// Recorder deduplicates detections into anomaly records. All read-modify-write
// sequences for one dedup key serialize on a striped mutex; detections for
// different keys proceed in parallel.
type Recorder struct {
	store  ports.LifecycleStore
	window time.Duration // rolling dedup window, zero means no expiry
	locks  [lockStripes]sync.Mutex
}

func NewRecorder(store ports.LifecycleStore, window time.Duration) *Recorder {
	return &Recorder{store: store, window: window}
}

// Record merges a detection into the open record for its dedup key, or opens
// a new one at status "new". Severity is recomputed from the maximum risk
// observed across absorbed detections and never decreases. Closed records
// never reopen: a re-matching detection opens a fresh record.
func (r *Recorder) Record(ctx context.Context, res domain.EnsembleResult, source, destination string, ts time.Time) (*domain.AnomalyRecord, error) {
	key := domain.DedupKey{Source: source, Destination: destination, Category: res.Category}

	lock := r.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	var notBefore time.Time
	if r.window > 0 {
		notBefore = ts.Add(-r.window)
	}

	open, err := r.store.FindOpenAnomaly(ctx, key, notBefore)
	if err != nil {
		return nil, fmt.Errorf("find open anomaly: %w", err)
	}

	if open != nil {
		open.Absorb(res.Risk, ts)
		if err := r.store.UpdateAnomaly(ctx, open); err != nil {
			return nil, fmt.Errorf("absorb detection: %w", err)
		}
		telemetry.AnomaliesAbsorbed.Inc()
		return open, nil
	}

	rec := domain.NewAnomalyRecord(key, res.Risk, ts)
	if err := r.store.CreateAnomaly(ctx, rec); err != nil {
		return nil, fmt.Errorf("create anomaly: %w", err)
	}
	telemetry.AnomaliesOpened.WithLabelValues(string(rec.Category), string(rec.Severity)).Inc()
	return rec, nil
}

func (r *Recorder) lockFor(key domain.DedupKey) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	return &r.locks[h.Sum32()%lockStripes]
}

var _ ports.AnomalyRecorder = (*Recorder)(nil)
