package container

import (
	"context"
	"slices"
	"sync"
)

// resolverFunc is the type-erased form every Resolver[T] is stored as.
type resolverFunc func(ctx context.Context, s *Scope) (any, error)

// resolverEntry serializes calls of one resolver. Different keys run
// concurrently; the same key never runs twice at once.
//
// A once entry caches its first successful result in the invoking scope's
// own value store. The store is re-checked under mu, so concurrent first
// callers share a single construction.
type resolverEntry struct {
	mu      sync.Mutex
	key     TypeKey
	fn      resolverFunc
	once    bool
	retired bool
}

func (e *resolverEntry) call(ctx context.Context, s *Scope) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.once {
		return e.fn(ctx, s)
	}
	if v, ok := s.c.values.get(e.key); ok {
		return v, nil
	}
	v, err := e.fn(ctx, s)
	if err != nil {
		return nil, err
	}
	if !e.retired {
		s.c.store(e.key, v)
	}
	return v, nil
}

// retire waits for a running call to finish and stops later calls of a
// once entry from caching. Callers that looked the entry up before it was
// taken may still run it, but can no longer bring its value back.
func (e *resolverEntry) retire() {
	e.mu.Lock()
	e.retired = true
	e.mu.Unlock()
}

// resolverRegistry maps keys to resolvers. Its lock is never held while a
// resolver runs, so resolvers may freely call back into any scope.
type resolverRegistry struct {
	mu    sync.RWMutex
	items map[TypeKey]*resolverEntry
}

func newResolverRegistry() *resolverRegistry {
	return &resolverRegistry{items: make(map[TypeKey]*resolverEntry)}
}

// register installs fn for key, replacing any previous resolver.
func (r *resolverRegistry) register(key TypeKey, fn resolverFunc, once bool) {
	e := &resolverEntry{key: key, fn: fn, once: once}
	r.mu.Lock()
	r.items[key] = e
	r.mu.Unlock()
}

// softRegister installs fn only when key has no resolver yet. The check and
// the insert happen under one lock acquisition so two racing soft
// registrations cannot both win.
func (r *resolverRegistry) softRegister(key TypeKey, fn resolverFunc, once bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[key]; exists {
		return false
	}
	r.items[key] = &resolverEntry{key: key, fn: fn, once: once}
	return true
}

func (r *resolverRegistry) has(key TypeKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[key]
	return ok
}

func (r *resolverRegistry) lookup(key TypeKey) *resolverEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items[key]
}

// take removes and returns the entry for key, or nil.
func (r *resolverRegistry) take(key TypeKey) *resolverEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[key]
	if ok {
		delete(r.items, key)
	}
	return e
}

func (r *resolverRegistry) remove(key TypeKey) bool {
	return r.take(key) != nil
}

// invoke runs the resolver registered for key, if any.
func (r *resolverRegistry) invoke(ctx context.Context, key TypeKey, s *Scope) (any, bool, error) {
	e := r.lookup(key)
	if e == nil {
		return nil, false, nil
	}
	v, err := e.call(ctx, s)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *resolverRegistry) keys() []TypeKey {
	r.mu.RLock()
	out := make([]TypeKey, 0, len(r.items))
	for k := range r.items {
		out = append(out, k)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, TypeKey.Compare)
	return out
}
