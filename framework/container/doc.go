// Package container is a type-keyed service container with scopes.
//
// # Overview
//
// Every registration is keyed by a Go type. Asking a Scope for a T returns
// the stored T if there is one, otherwise the output of the resolver
// registered for T, otherwise whatever the scope's parents provide.
//
// There are three kinds of scope:
//
//   - Global: the process-wide scope, created on first use, never torn down.
//   - Proxy: a detached scope with its own store. Lookups that miss fall back
//     to the calling task's scope (if any) and then to Global.
//   - Task: one store per task, shared by every handle created in that task
//     and torn down when the task ends or its last handle is released.
//     Lookups that miss fall back to Global.
//
// Writes only ever touch the scope they are made on.
//
// # Values
//
//	container.Set(container.Global(), 600)
//	n, ok, err := container.Get[int](ctx, container.Global())
//
//	// shared: one *Config for every caller
//	container.SetShared(container.Global(), Config{Hostname: "localhost"})
//	cfg, ok, err := container.GetShared[Config](ctx, container.Global())
//
// # Resolvers
//
//	// runs on every lookup
//	container.RegisterResolver(s, func(ctx context.Context, s *container.Scope) (RequestID, error) {
//	    return RequestID(uuid.NewString()), nil
//	})
//
//	// runs once per scope, result cached in s
//	container.RegisterResolverOnce(s, newHTTPClient)
//
//	// keeps any resolver that is already there
//	container.SoftRegisterResolver(s, newDefaultCache)
//
// Resolvers receive the scope doing the lookup and may resolve their own
// dependencies from it. A resolver must not look up its own type, directly
// or through a cycle: calls to one resolver are serialized and such a
// lookup deadlocks. Nothing is verified up front; a missing dependency shows
// up as ok == false (or ErrNotFound from Require) at first use.
//
// # Tasks
//
//	err := container.RunTask(ctx, func(ctx context.Context) error {
//	    s, err := container.NewTaskScope(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    defer s.Release()
//
//	    container.Set(s, 0.25) // visible to every handle of this task only
//	    return nil
//	})
//
// NewTaskScope outside a task returns ErrNoActiveTask.
//
// # Injection
//
//	total, err := container.Invoke[int64](ctx, s, func(amount int64, discount float64) int64 {
//	    return amount - int64(float64(amount)*discount)
//	})
//
// # Service Providers
//
//	registry := container.NewProviderRegistry(container.Global())
//	registry.Register(ctx, &MailProvider{})
//	registry.Boot(ctx)
package container
