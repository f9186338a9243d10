package container

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind is the lifecycle variant of a Scope. It never changes after creation.
type Kind uint8

const (
	// KindGlobal is the process-wide scope. It ends every fallback chain.
	KindGlobal Kind = iota
	// KindProxy is a detached scope that falls back to the task scope of the
	// calling context, if any, and then to Global.
	KindProxy
	// KindTask is shared by every handle created inside one task and falls
	// back to Global.
	KindTask
)

func (k Kind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindProxy:
		return "proxy"
	case KindTask:
		return "task"
	}
	return "unknown"
}

// ScopeID identifies a scope. Global always has the nil UUID.
type ScopeID = uuid.UUID

// GlobalID is the well-known id of the Global scope.
var GlobalID = uuid.Nil

// Scope is a cheap handle over a Container plus a fallback policy. Copying
// the pointer shares the handle; Clone creates a new reference to the same
// store.
type Scope struct {
	kind Kind
	id   ScopeID
	c    *Container
	ref  *taskRef // set on task handles only
}

var global = sync.OnceValue(func() *Scope {
	return &Scope{kind: KindGlobal, id: GlobalID, c: newContainer()}
})

// Global returns the process-wide scope, creating it on first use.
func Global() *Scope {
	return global()
}

// NewProxy returns a scope with its own, empty store. Lookups that miss fall
// back to the calling task's scope (if one is live) and then to Global.
// Writes never leave the proxy. The store is discarded with the last
// reference to it.
func NewProxy() *Scope {
	return &Scope{kind: KindProxy, id: uuid.New(), c: newContainer()}
}

// NewTaskScope returns a handle on the scope of the task ctx belongs to,
// creating that scope on first use. All handles of one task share a store.
// Call Release when done with the handle; the store is torn down when the
// last handle is released or the task ends.
func NewTaskScope(ctx context.Context) (*Scope, error) {
	id, ok := currentTask(ctx)
	if !ok {
		return nil, ErrNoActiveTask
	}
	return newTaskHandle(id, tasks.acquire(id)), nil
}

func newTaskHandle(id TaskID, c *Container) *Scope {
	ref := &taskRef{id: id, c: c}
	s := &Scope{kind: KindTask, id: id, c: c, ref: ref}
	// a handle dropped without Release still gives its reference back
	runtime.AddCleanup(s, func(r *taskRef) { r.release() }, ref)
	return s
}

// Kind reports the scope's lifecycle variant.
func (s *Scope) Kind() Kind { return s.kind }

// ID returns the scope id.
func (s *Scope) ID() ScopeID { return s.id }

func (s *Scope) String() string {
	return s.kind.String() + ":" + s.id.String()
}

// Clone returns a new reference to the same store. For task scopes the new
// handle holds its own reference count and must be released separately.
func (s *Scope) Clone() *Scope {
	if s.kind != KindTask {
		cp := *s
		return &cp
	}
	if !tasks.retain(s.id, s.c) {
		// the task already ended; hand out a view that owns nothing
		return &Scope{kind: KindTask, id: s.id, c: s.c}
	}
	return newTaskHandle(s.id, s.c)
}

// Release gives up this handle's reference. It is idempotent and a no-op
// for Global and Proxy scopes.
func (s *Scope) Release() {
	if s.ref != nil {
		s.ref.release()
	}
}

// Keys lists the types this scope can answer without fallback: stored
// values first, then resolvers, each sorted by name.
func (s *Scope) Keys() []TypeKey {
	out := s.c.values.keys()
	for _, k := range s.c.resolvers.keys() {
		if _, ok := s.c.values.get(k); !ok {
			out = append(out, k)
		}
	}
	return out
}

// lookup resolves key in this scope and then along its fallback chain.
func (s *Scope) lookup(ctx context.Context, key TypeKey) (any, bool, error) {
	v, outcome, err := s.c.resolve(ctx, key, s)
	if outcome == OutcomeMiss {
		v, outcome, err = s.fallback(ctx, key)
	}
	observer().ObserveResolve(s.kind, key, outcome)
	if err != nil {
		logger().Debug("resolve failed",
			zap.Stringer("scope", s),
			zap.Stringer("type", key),
			zap.Error(err),
		)
		return nil, false, err
	}
	return v, outcome != OutcomeMiss, nil
}

// fallback tries each parent once. A parent's resolver runs against that
// parent, so once-resolvers registered on Global cache on Global.
func (s *Scope) fallback(ctx context.Context, key TypeKey) (any, Outcome, error) {
	for _, p := range s.parents(ctx) {
		v, outcome, err := p.c.resolve(ctx, key, p)
		switch outcome {
		case OutcomeMiss:
			continue
		case OutcomeError:
			return nil, outcome, err
		}
		return v, OutcomeFallback, nil
	}
	return nil, OutcomeMiss, nil
}

func (s *Scope) parents(ctx context.Context) []*Scope {
	switch s.kind {
	case KindTask:
		return []*Scope{Global()}
	case KindProxy:
		if ts := tasks.peek(ctx); ts != nil {
			return []*Scope{ts, Global()}
		}
		return []*Scope{Global()}
	}
	return nil
}
