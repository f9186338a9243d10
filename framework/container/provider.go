package container

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the registrations of one subsystem.
//
// Register is called first and must only register (no lookups). Boot runs
// after every eager provider is registered, so it may resolve anything.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(s *container.Scope) {
//	    container.RegisterResolverOnce(s, newMailer)
//	}
//
//	func (p *MailProvider) Boot(ctx context.Context, s *container.Scope) error {
//	    _, err := container.Require[*Mailer](ctx, s)
//	    return err
//	}
type ServiceProvider interface {
	// Register binds services into the scope.
	Register(s *Scope)

	// Boot is called after all providers are registered.
	Boot(ctx context.Context, s *Scope) error

	// Provides lists the keys a deferred provider registers.
	Provides() []TypeKey

	// IsDeferred reports whether Register should wait until one of the
	// Provides keys is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides no-op implementations
// of Boot(), Provides(), and IsDeferred().
type BaseProvider struct{}

func (p *BaseProvider) Boot(context.Context, *Scope) error { return nil }
func (p *BaseProvider) Provides() []TypeKey                { return nil }
func (p *BaseProvider) IsDeferred() bool                   { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots providers against one scope,
// loading deferred providers lazily.
type ProviderRegistry struct {
	scope *Scope

	mu         sync.Mutex
	eager      []ServiceProvider
	deferred   map[TypeKey]ServiceProvider
	registered map[ServiceProvider]bool
	loaded     map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to s.
func NewProviderRegistry(s *Scope) *ProviderRegistry {
	return &ProviderRegistry{
		scope:      s,
		deferred:   make(map[TypeKey]ServiceProvider),
		registered: make(map[ServiceProvider]bool),
		loaded:     make(map[ServiceProvider]bool),
	}
}

// Scope returns the scope providers register into.
func (r *ProviderRegistry) Scope() *Scope { return r.scope }

// Register adds a provider and calls its Register method, unless it is
// deferred. A provider added after Boot is booted immediately.
func (r *ProviderRegistry) Register(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		for _, key := range provider.Provides() {
			// an existing resolver for key takes precedence over the stub
			if r.scope.c.resolvers.softRegister(key, r.deferredResolver(key, provider), false) {
				r.deferred[key] = provider
			}
		}
		r.mu.Unlock()
		return nil
	}

	provider.Register(r.scope)
	r.loaded[provider] = true
	r.eager = append(r.eager, provider)
	booted := r.booted
	r.mu.Unlock()

	if booted {
		return r.boot(ctx, provider)
	}
	return nil
}

// deferredResolver stands in for key until its provider is loaded.
func (r *ProviderRegistry) deferredResolver(key TypeKey, provider ServiceProvider) resolverFunc {
	return func(ctx context.Context, _ *Scope) (any, error) {
		if err := r.load(ctx, provider); err != nil {
			return nil, err
		}
		v, outcome, err := r.scope.c.resolve(ctx, key, r.scope)
		if err != nil {
			return nil, err
		}
		if outcome == OutcomeMiss {
			return nil, fmt.Errorf("deferred provider %T did not register it: %w", provider, &MissingDependencyError{Key: key})
		}
		return v, nil
	}
}

// load registers a deferred provider for real, exactly once.
func (r *ProviderRegistry) load(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	if r.loaded[provider] {
		r.mu.Unlock()
		return nil
	}
	r.loaded[provider] = true
	for _, key := range provider.Provides() {
		if r.deferred[key] == provider {
			delete(r.deferred, key)
			r.scope.c.resolvers.remove(key)
		}
	}
	provider.Register(r.scope)
	booted := r.booted
	r.mu.Unlock()

	logger().Debug("deferred provider loaded", zap.String("provider", fmt.Sprintf("%T", provider)))
	if booted {
		return r.boot(ctx, provider)
	}
	return nil
}

// Boot calls Boot on all eager providers, stopping at the first error.
// Later calls are no-ops.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := r.boot(ctx, provider); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProviderRegistry) boot(ctx context.Context, provider ServiceProvider) error {
	if err := provider.Boot(ctx, r.scope); err != nil {
		return fmt.Errorf("container: booting %T: %w", provider, err)
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}
