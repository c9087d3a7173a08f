package fuse

// HealthReporter is the non-generic face of [Policy]; keeping T out of the
// interface lets policies of different result types depend on one another
// and share a [Registry].
type HealthReporter interface {
	// Name returns the policy's name.
	Name() string
	// HealthStatus returns the current health state of the policy.
	HealthStatus() PolicyStatus
}

// Criticality grades how much a pattern's bad state should weigh on
// readiness decisions.
type Criticality int

const (
	// CriticalityNone: nothing stateful is wrong.
	CriticalityNone Criticality = iota
	// CriticalityDegraded: the policy still serves, with reduced capacity.
	CriticalityDegraded
	// CriticalityCritical: the policy cannot reliably serve.
	CriticalityCritical
)

func (c Criticality) String() string {
	switch c {
	case CriticalityDegraded:
		return "degraded"
	case CriticalityCritical:
		return "critical"
	default:
		return "none"
	}
}

// PolicyStatus is a point-in-time health snapshot, including snapshots of
// declared dependencies.
type PolicyStatus struct {
	Name         string         `json:"name"`
	State        string         `json:"state"`
	Dependencies []PolicyStatus `json:"dependencies,omitempty"`
	Criticality  Criticality    `json:"criticality"`
	Healthy      bool           `json:"healthy"`
}

func (s *PolicyStatus) degrade() {
	if s.Criticality < CriticalityDegraded {
		s.Criticality = CriticalityDegraded
	}
}

// HealthStatus derives health from the policy's stateful patterns. An open
// circuit is critical and unhealthy; a saturated rate limiter or a full
// bulkhead only degrades. A critical unhealthy dependency degrades the
// policy without flipping its own Healthy flag.
func (p *Policy[T]) HealthStatus() PolicyStatus {
	status := PolicyStatus{
		Name:    p.name,
		Healthy: true,
		State:   "healthy",
	}

	if p.circuitBreaker != nil {
		switch p.circuitBreaker.State() {
		case Open:
			status.Healthy = false
			status.Criticality = CriticalityCritical
			status.State = "circuit_open"
		case HalfOpen:
			// Recovering, not unhealthy.
			status.State = "circuit_half_open"
		case Closed:
		}
	}

	if p.rateLimiter != nil && p.rateLimiter.Saturated() {
		status.degrade()

		if status.Healthy {
			status.State = "rate_limited"
		}
	}

	if p.bulkhead != nil && p.bulkhead.Full() {
		status.degrade()

		if status.Healthy && status.State == "healthy" {
			status.State = "bulkhead_full"
		}
	}

	for _, dep := range p.deps {
		depStatus := dep.HealthStatus()
		status.Dependencies = append(status.Dependencies, depStatus)

		if depStatus.Criticality == CriticalityCritical && !depStatus.Healthy {
			status.degrade()
		}
	}

	return status
}
