package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/melih/lighthouse-pipeline/internal/core/domain"
)

// Registry implements ports.DeploymentRegistry with mutex-guarded maps.
// Nothing is persisted: state resets when the process restarts.
type Registry struct {
	mu          sync.RWMutex
	deployments map[string]*domain.Deployment
	containers  map[string]string // caller -> container ID
	reserved    map[string]string // caller -> in-flight deployment ID
	now         func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		deployments: make(map[string]*domain.Deployment),
		containers:  make(map[string]string),
		reserved:    make(map[string]string),
		now:         time.Now,
	}
}

func (r *Registry) Create(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deployments[id]; ok {
		return fmt.Errorf("deployment %q: %w", id, domain.ErrConflict)
	}
	r.deployments[id] = &domain.Deployment{
		ID:        id,
		Status:    domain.StatusRunning,
		CreatedAt: r.now(),
	}
	return nil
}

func (r *Registry) AppendLog(id, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deployments[id]
	if !ok {
		return domain.ErrDeploymentNotFound
	}
	d.Log = append(d.Log, text)
	return nil
}

// Snapshot returns a copy of the log so callers never share the backing array
// the workflow appends to.
func (r *Registry) Snapshot(id string) (domain.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deployments[id]
	if !ok {
		return domain.Snapshot{}, domain.ErrDeploymentNotFound
	}
	log := make([]string, len(d.Log))
	copy(log, d.Log)
	snap := domain.Snapshot{
		ID:        d.ID,
		Log:       log,
		Status:    d.Status,
		Result:    d.Result,
		CreatedAt: d.CreatedAt,
	}
	if !d.CompletedAt.IsZero() {
		completed := d.CompletedAt
		snap.CompletedAt = &completed
	}
	return snap, nil
}

// SetStatus updates the status. A completed deployment stays completed.
func (r *Registry) SetStatus(id string, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deployments[id]
	if !ok {
		return domain.ErrDeploymentNotFound
	}
	if d.Status.IsTerminal() {
		return nil
	}
	d.Status = status
	if status.IsTerminal() {
		d.CompletedAt = r.now()
	}
	return nil
}

func (r *Registry) SetResult(id, containerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deployments[id]
	if !ok {
		return domain.ErrDeploymentNotFound
	}
	d.Result = containerID
	return nil
}

func (r *Registry) Reserve(caller, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.containers[caller]; ok {
		return domain.ErrCallerBusy
	}
	if _, ok := r.reserved[caller]; ok {
		return domain.ErrCallerBusy
	}
	r.reserved[caller] = id
	return nil
}

func (r *Registry) Release(caller, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reserved[caller] == id {
		delete(r.reserved, caller)
	}
}

func (r *Registry) BindContainer(caller, containerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.containers[caller] = containerID
}

func (r *Registry) LookupContainer(caller string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.containers[caller]
	return id, ok
}

func (r *Registry) UnbindContainer(caller string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.containers, caller)
}
