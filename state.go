package fuse

// State is the externally visible state of a [CircuitBreaker].
//
// Only Closed and Open are ever committed to the breaker's internal state.
// HalfOpen is a derived view: it is reported while the committed state is
// Open and the recovery timeout has elapsed, meaning a trial call would be
// admitted. The committed transition back to Closed (or a refreshed Open)
// happens only as a side effect of an actual call outcome.
type State int

const (
	// Closed is the normal operating state; calls pass through.
	Closed State = iota

	// Open is the failing state; calls are rejected with [ErrCircuitOpen].
	Open

	// HalfOpen indicates the recovery timeout has elapsed and a trial call
	// may proceed. It is never stored, only reported.
	HalfOpen
)

// String returns the state as a lowercase string.
func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
