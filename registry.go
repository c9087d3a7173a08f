package fuse

import (
	"sync"
	"sync/atomic"
)

// ReadinessStatus aggregates the health of every registered policy.
// Ready is false as soon as one policy is both critical and unhealthy.
type ReadinessStatus struct {
	Policies []PolicyStatus `json:"policies"`
	Ready    bool           `json:"ready"`
}

// Registry collects [HealthReporter] instances and, when produced by
// [LoadConfig], the declarative policy configurations. The reporter list is
// copy-on-write behind an atomic pointer: registration takes the mutex,
// readiness checks read the pointer without locking.
type Registry struct {
	reporters atomic.Pointer[[]HealthReporter]
	configs   map[string]PolicyConfig
	mu        sync.Mutex
}

//nolint:gochecknoglobals // process-wide registry, lazily built
var defaultRegistry = sync.OnceValue(NewRegistry)

// NewRegistry creates an empty registry. Dedicated registries are useful in
// tests and anywhere the process-wide [DefaultRegistry] would mix tenants.
func NewRegistry() *Registry {
	r := &Registry{}

	var empty []HealthReporter

	r.reporters.Store(&empty)

	return r
}

// Register adds hr to the registry. [NewPolicy] calls this for every named
// policy; direct calls are only needed for reporters built some other way.
func (r *Registry) Register(hr HealthReporter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := *r.reporters.Load()

	// Never mutate the published slice; readers may be iterating it.
	updated := make([]HealthReporter, len(old), len(old)+1)
	copy(updated, old)
	updated = append(updated, hr)

	r.reporters.Store(&updated)
}

// CheckReadiness snapshots every registered policy's health. A policy that
// is critical and unhealthy marks the whole service not ready.
func (r *Registry) CheckReadiness() ReadinessStatus {
	reporters := *r.reporters.Load()

	status := ReadinessStatus{
		Ready:    true,
		Policies: make([]PolicyStatus, 0, len(reporters)),
	}

	for _, hr := range reporters {
		ps := hr.HealthStatus()
		status.Policies = append(status.Policies, ps)

		if ps.Criticality == CriticalityCritical && !ps.Healthy {
			status.Ready = false
		}
	}

	return status
}

// DefaultRegistry returns the process-wide registry, created on first use.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}
