package registry

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
)

// ModelRegistry implements ports.ModelRegistry. The active set is replaced
// wholesale on every mutation (copy-on-write) so scoring calls holding a
// snapshot never observe a partially mutated set.
type ModelRegistry struct {
	mu     sync.RWMutex
	active []ports.ScoringModel
	infos  map[string]domain.ModelInfo
	store  ports.LifecycleStore // optional, persists metadata for operator visibility
}

func NewModelRegistry(store ports.LifecycleStore) *ModelRegistry {
	return &ModelRegistry{
		infos: make(map[string]domain.ModelInfo),
		store: store,
	}
}

// Register adds a model version to the active set. Registration is idempotent
// per version: re-registering an existing version is a no-op, not an error.
func (r *ModelRegistry) Register(model ports.ScoringModel, info domain.ModelInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}
	if model.Version() != info.Version {
		return fmt.Errorf("model version %q does not match info version %q", model.Version(), info.Version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.infos[info.Version]; ok && existing.Active {
		return nil
	}

	next := make([]ports.ScoringModel, len(r.active), len(r.active)+1)
	copy(next, r.active)
	r.active = append(next, model)

	info.Active = true
	r.infos[info.Version] = info
	r.persist(info)

	log.Printf("Model registered: version=%s kind=%s", info.Version, info.Kind)
	return nil
}

// Retire removes a version from the active set. Scoring calls already holding
// a snapshot keep using the retired model until they complete.
func (r *ModelRegistry) Retire(version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.infos[version]
	if !ok || !info.Active {
		return domain.ErrModelNotFound
	}

	next := make([]ports.ScoringModel, 0, len(r.active))
	for _, m := range r.active {
		if m.Version() != version {
			next = append(next, m)
		}
	}
	r.active = next

	info.Active = false
	r.infos[version] = info
	r.persist(info)

	log.Printf("Model retired: version=%s", version)
	return nil
}

// Active returns the current model snapshot. Callers own the returned slice.
func (r *ModelRegistry) Active() []ports.ScoringModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.ScoringModel, len(r.active))
	copy(out, r.active)
	return out
}

// Info returns metadata for one version, active or retired.
func (r *ModelRegistry) Info(version string) (domain.ModelInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.infos[version]
	if !ok {
		return domain.ModelInfo{}, domain.ErrModelNotFound
	}
	return info, nil
}

// List returns metadata for every known version.
func (r *ModelRegistry) List() []domain.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ModelInfo, 0, len(r.infos))
	for _, info := range r.infos {
		out = append(out, info)
	}
	return out
}

// ReportMetrics records performance figures supplied by the training
// collaborator.
func (r *ModelRegistry) ReportMetrics(version string, metrics domain.ModelMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.infos[version]
	if !ok {
		return domain.ErrModelNotFound
	}
	info.Metrics = metrics
	r.infos[version] = info
	r.persist(info)
	return nil
}

func (r *ModelRegistry) persist(info domain.ModelInfo) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveModelInfo(context.Background(), info); err != nil {
		log.Printf("Warning: could not persist model metadata for %s: %v", info.Version, err)
	}
}

var _ ports.ModelRegistry = (*ModelRegistry)(nil)
