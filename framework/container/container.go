package container

import (
	"context"
)

// Container composes a value slot store with a resolver registry. It knows
// nothing about fallback; that is the Scope's job.
//
// It keeps the two-stage lookup of a classic IoC container: a stored
// instance always wins over a registered factory.
type Container struct {
	values    *valueStore
	resolvers *resolverRegistry
}

// newContainer creates an empty container.
func newContainer() *Container {
	return &Container{
		values:    newValueStore(),
		resolvers: newResolverRegistry(),
	}
}

// resolve checks the value store, then the resolver registry. Invoking a
// plain resolver does not persist its result; only once-resolvers and
// explicit stores do.
func (c *Container) resolve(ctx context.Context, key TypeKey, s *Scope) (any, Outcome, error) {
	if v, ok := c.values.get(key); ok {
		return v, OutcomeValue, nil
	}
	v, ok, err := c.resolvers.invoke(ctx, key, s)
	switch {
	case err != nil:
		return nil, OutcomeError, wrapResolveErr(key, err)
	case ok:
		return v, OutcomeResolver, nil
	}
	return nil, OutcomeMiss, nil
}

// store overwrites the value for key.
func (c *Container) store(key TypeKey, v any) {
	c.values.set(key, v)
}

// forget removes both the value and the resolver for key. When only a
// resolver existed it is invoked one last time and its output returned,
// without leaving anything cached behind.
func (c *Container) forget(ctx context.Context, key TypeKey, s *Scope) (any, bool, error) {
	entry := c.resolvers.take(key)
	if entry != nil {
		entry.retire()
	}
	if v, ok := c.values.remove(key); ok {
		return v, true, nil
	}
	if entry == nil {
		return nil, false, nil
	}
	v, err := entry.call(ctx, s)
	if err != nil {
		return nil, false, wrapResolveErr(key, err)
	}
	return v, true, nil
}

func (c *Container) bound(key TypeKey) bool {
	if _, ok := c.values.get(key); ok {
		return true
	}
	return c.resolvers.has(key)
}
