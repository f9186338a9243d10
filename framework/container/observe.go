package container

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Outcome classifies how a lookup was answered.
type Outcome string

const (
	OutcomeValue    Outcome = "value"    // stored value in the scope itself
	OutcomeResolver Outcome = "resolver" // resolver of the scope itself
	OutcomeFallback Outcome = "fallback" // answered by a parent scope
	OutcomeMiss     Outcome = "miss"
	OutcomeError    Outcome = "error"
)

// Observer receives resolution events. Implementations must be safe for
// concurrent use and must not call back into the container.
type Observer interface {
	ObserveResolve(kind Kind, key TypeKey, outcome Outcome)
	ObserveTaskScopes(live int)
}

type nopObserver struct{}

func (nopObserver) ObserveResolve(Kind, TypeKey, Outcome) {}
func (nopObserver) ObserveTaskScopes(int)                 {}

// hooks is the process-wide instrumentation shared by every scope.
var hooks struct {
	logger   atomic.Pointer[zap.Logger]
	observer atomic.Pointer[Observer]
}

func init() {
	hooks.logger.Store(zap.NewNop())
	var o Observer = nopObserver{}
	hooks.observer.Store(&o)
}

// SetLogger installs the logger used for container diagnostics. A nil logger
// restores the no-op default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	hooks.logger.Store(l.Named("container"))
}

// SetObserver installs o for every scope. A nil observer disables events.
func SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	hooks.observer.Store(&o)
}

func logger() *zap.Logger { return hooks.logger.Load() }

func observer() Observer { return *hooks.observer.Load() }
