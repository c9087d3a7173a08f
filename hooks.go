package fuse

// Hooks carries optional lifecycle callbacks for the resilience patterns.
// Every field defaults to nil and only the ones a caller cares about get
// set. Emit methods read the fields without synchronisation, so a Hooks
// value must not be mutated after it is handed to a pattern.
//
// Callbacks run synchronously on the calling goroutine; slow observers
// slow the call path.
type Hooks struct {
	OnRetry            func(attempt int, err error)
	OnCircuitOpen      func()
	OnCircuitClose     func()
	OnCircuitHalfOpen  func()
	OnCircuitRejected  func()
	OnRateLimited      func()
	OnBulkheadFull     func()
	OnBulkheadAcquired func()
	OnBulkheadReleased func()
	OnTimeout          func()
	OnHedgeTriggered   func()
	OnHedgeWon         func()
	OnFallbackUsed     func(err error)
}

// fire invokes fn when set.
func fire(fn func()) {
	if fn != nil {
		fn()
	}
}

func (h *Hooks) emitRetry(attempt int, err error) {
	if h.OnRetry != nil {
		h.OnRetry(attempt, err)
	}
}

func (h *Hooks) emitFallbackUsed(err error) {
	if h.OnFallbackUsed != nil {
		h.OnFallbackUsed(err)
	}
}

func (h *Hooks) emitCircuitOpen()      { fire(h.OnCircuitOpen) }
func (h *Hooks) emitCircuitClose()     { fire(h.OnCircuitClose) }
func (h *Hooks) emitCircuitHalfOpen()  { fire(h.OnCircuitHalfOpen) }
func (h *Hooks) emitCircuitRejected()  { fire(h.OnCircuitRejected) }
func (h *Hooks) emitRateLimited()      { fire(h.OnRateLimited) }
func (h *Hooks) emitBulkheadFull()     { fire(h.OnBulkheadFull) }
func (h *Hooks) emitBulkheadAcquired() { fire(h.OnBulkheadAcquired) }
func (h *Hooks) emitBulkheadReleased() { fire(h.OnBulkheadReleased) }
func (h *Hooks) emitTimeout()          { fire(h.OnTimeout) }
func (h *Hooks) emitHedgeTriggered()   { fire(h.OnHedgeTriggered) }
func (h *Hooks) emitHedgeWon()         { fire(h.OnHedgeWon) }
