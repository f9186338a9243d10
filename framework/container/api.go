package container

import (
	"context"
)

// Resolver constructs a T on demand. It receives the scope that performed
// the lookup and may resolve its own dependencies from it.
type Resolver[T any] func(ctx context.Context, s *Scope) (T, error)

func (r Resolver[T]) erase() resolverFunc {
	if r == nil {
		panic(ErrNilResolver)
	}
	return func(ctx context.Context, s *Scope) (any, error) {
		return r(ctx, s)
	}
}

// Resolvable is implemented by types that know how to build themselves.
// The method is called on the zero value of T, so use a value receiver (or
// a pointer receiver that does not dereference).
type Resolvable[T any] interface {
	Resolve(ctx context.Context, s *Scope) (T, error)
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// Get returns the T visible from s: a stored value, else the output of a
// resolver, else whatever the fallback chain yields. ok is false when
// nothing is registered; err is only set when a resolver failed.
//
//	cfg, ok, err := container.Get[*Config](ctx, scope)
func Get[T any](ctx context.Context, s *Scope) (T, bool, error) {
	v, ok, err := s.lookup(ctx, KeyOf[T]())
	if err != nil {
		var zero T
		return zero, false, err
	}
	t, ok := typed[T](v, ok)
	return t, ok, nil
}

// Require is Get for callers that treat absence as an error, typically
// resolvers pulling in their own dependencies.
//
//	container.RegisterResolver(s, func(ctx context.Context, s *container.Scope) (*Mailer, error) {
//	    cfg, err := container.Require[*Config](ctx, s)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewMailer(cfg), nil
//	})
func Require[T any](ctx context.Context, s *Scope) (T, error) {
	t, ok, err := Get[T](ctx, s)
	if err != nil {
		return t, err
	}
	if !ok {
		return t, &MissingDependencyError{Key: KeyOf[T]()}
	}
	return t, nil
}

// MustGet is like Require but panics instead of returning an error.
func MustGet[T any](ctx context.Context, s *Scope) T {
	t, err := Require[T](ctx, s)
	if err != nil {
		panic(err)
	}
	return t
}

// GetShared returns the shared *T stored with SetShared (or produced by a
// Resolver[*T]). Every caller gets the same pointer.
func GetShared[T any](ctx context.Context, s *Scope) (*T, bool, error) {
	return Get[*T](ctx, s)
}

// Has reports whether s itself holds a value or resolver for T. Parents are
// not consulted.
func Has[T any](s *Scope) bool {
	return s.c.bound(KeyOf[T]())
}

// HasResolver reports whether s itself has a resolver for T.
func HasResolver[T any](s *Scope) bool {
	return s.c.resolvers.has(KeyOf[T]())
}

// ── Values ────────────────────────────────────────────────────────────────────

// Set stores v as the T of scope s, replacing any previous value. Writes
// never propagate to parent scopes.
//
//	container.Set(scope, 600)          // int
//	container.Set[io.Writer](scope, w) // keyed by the interface
func Set[T any](s *Scope, v T) *Scope {
	s.c.store(KeyOf[T](), v)
	return s
}

// SetShared stores a pointer to v under *T and returns it. Use it for
// values that should be shared rather than copied on every Get.
func SetShared[T any](s *Scope, v T) *T {
	p := &v
	s.c.store(KeyOf[*T](), p)
	return p
}

// Forget removes T from s (value and resolver alike) and returns what was
// there. When only a resolver existed it is run one final time so the
// caller still receives a value. A resolver for T that calls Forget[T]
// deadlocks, like any resolver that re-enters its own type.
func Forget[T any](ctx context.Context, s *Scope) (T, bool, error) {
	v, ok, err := s.c.forget(ctx, KeyOf[T](), s)
	if err != nil {
		var zero T
		return zero, false, err
	}
	t, ok := typed[T](v, ok)
	return t, ok, nil
}

// ForgetShared is Forget for values stored with SetShared.
func ForgetShared[T any](ctx context.Context, s *Scope) (*T, bool, error) {
	return Forget[*T](ctx, s)
}

// ── Resolvers ─────────────────────────────────────────────────────────────────

// RegisterResolver makes fn the constructor for T in s, replacing any
// previous one. fn runs on every lookup that misses the value store.
func RegisterResolver[T any](s *Scope, fn Resolver[T]) *Scope {
	s.c.resolvers.register(KeyOf[T](), fn.erase(), false)
	return s
}

// RegisterResolverOnce registers fn as a singleton constructor: the first
// successful result is stored in s and every later lookup returns it. A
// failed attempt caches nothing.
func RegisterResolverOnce[T any](s *Scope, fn Resolver[T]) *Scope {
	s.c.resolvers.register(KeyOf[T](), fn.erase(), true)
	return s
}

// SoftRegisterResolver registers fn only if s has no resolver for T yet. It
// reports whether fn was installed.
func SoftRegisterResolver[T any](s *Scope, fn Resolver[T]) bool {
	return s.c.resolvers.softRegister(KeyOf[T](), fn.erase(), false)
}

// SoftRegisterResolverOnce is the singleton variant of SoftRegisterResolver.
func SoftRegisterResolverOnce[T any](s *Scope, fn Resolver[T]) bool {
	return s.c.resolvers.softRegister(KeyOf[T](), fn.erase(), true)
}

// RegisterResolvable registers T's own Resolve method as its resolver.
func RegisterResolvable[T Resolvable[T]](s *Scope) *Scope {
	var zero T
	return RegisterResolver[T](s, zero.Resolve)
}

// RegisterResolvableOnce registers T's Resolve method as a singleton.
func RegisterResolvableOnce[T Resolvable[T]](s *Scope) *Scope {
	var zero T
	return RegisterResolverOnce[T](s, zero.Resolve)
}

// SoftRegisterResolvable registers T's Resolve method if T has no resolver.
func SoftRegisterResolvable[T Resolvable[T]](s *Scope) bool {
	var zero T
	return SoftRegisterResolver[T](s, zero.Resolve)
}
