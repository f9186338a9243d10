package container

import (
	"slices"
	"sync"
)

// valueStore is the value slot store: one type-erased value per key.
// The lock only guards map access; values are swapped in whole.
type valueStore struct {
	mu    sync.RWMutex
	items map[TypeKey]any
}

func newValueStore() *valueStore {
	return &valueStore{items: make(map[TypeKey]any)}
}

func (s *valueStore) get(key TypeKey) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *valueStore) set(key TypeKey, v any) {
	s.mu.Lock()
	s.items[key] = v
	s.mu.Unlock()
}

func (s *valueStore) remove(key TypeKey) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

func (s *valueStore) keys() []TypeKey {
	s.mu.RLock()
	out := make([]TypeKey, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, TypeKey.Compare)
	return out
}

func (s *valueStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// typed asserts a stored value back to T. A value stored under T's key but
// holding another dynamic type (possible only through the untyped paths)
// counts as absent.
func typed[T any](v any, ok bool) (T, bool) {
	var zero T
	if !ok {
		return zero, false
	}
	if v == nil {
		// nil interface values are legal for interface and pointer types
		return zero, true
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
