package container

// Binding is one staged registration, applied to a scope by Apply.
type Binding func(s *Scope)

// Instance stages a stored value.
func Instance[T any](v T) Binding {
	return func(s *Scope) { Set(s, v) }
}

// Shared stages a value stored behind a shared *T.
func Shared[T any](v T) Binding {
	return func(s *Scope) { SetShared(s, v) }
}

// Bind stages a resolver that runs on every lookup.
func Bind[T any](fn Resolver[T]) Binding {
	return func(s *Scope) { RegisterResolver(s, fn) }
}

// Singleton stages a resolver whose first result is cached.
func Singleton[T any](fn Resolver[T]) Binding {
	return func(s *Scope) { RegisterResolverOnce(s, fn) }
}

// Fallback stages a soft singleton resolver that yields to any existing one.
func Fallback[T any](fn Resolver[T]) Binding {
	return func(s *Scope) { SoftRegisterResolverOnce(s, fn) }
}

// Apply runs bindings against s in order and returns s.
//
//	container.Apply(container.Global(),
//	    container.Instance(600),
//	    container.Shared(Config{Hostname: "localhost"}),
//	    container.Singleton(newHTTPClient),
//	)
func Apply(s *Scope, bindings ...Binding) *Scope {
	for _, b := range bindings {
		if b != nil {
			b(s)
		}
	}
	return s
}
