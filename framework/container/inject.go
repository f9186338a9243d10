package container

import (
	"context"
	"fmt"
	"reflect"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	scopeType   = reflect.TypeFor[*Scope]()
	errorType   = reflect.TypeFor[error]()
)

// Call invokes fn, supplying its leading parameters from prefix and
// resolving every remaining parameter from s. context.Context and *Scope
// parameters receive ctx and s themselves. If fn's last result is an error
// it is split off and returned as err.
//
//	out, err := container.Call(ctx, scope, func(cfg *Config, repo UserRepository) int {
//	    return repo.Count(cfg.Tenant)
//	})
func Call(ctx context.Context, s *Scope, fn any, prefix ...any) ([]any, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, fmt.Errorf("%w: %T is not a function", ErrInvalidHandler, fn)
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic %s is not supported", ErrInvalidHandler, ft)
	}
	if len(prefix) > ft.NumIn() {
		return nil, fmt.Errorf("%w: %d prefix arguments for %s", ErrInvalidHandler, len(prefix), ft)
	}

	args := make([]reflect.Value, ft.NumIn())
	for i, p := range prefix {
		want := ft.In(i)
		if p == nil {
			args[i] = reflect.Zero(want)
			continue
		}
		pv := reflect.ValueOf(p)
		if !pv.Type().AssignableTo(want) {
			return nil, fmt.Errorf("%w: argument %d is %s, want %s", ErrInvalidHandler, i, pv.Type(), want)
		}
		args[i] = pv
	}
	for i := len(prefix); i < ft.NumIn(); i++ {
		v, err := s.argument(ctx, ft.In(i))
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	out := fv.Call(args)

	var err error
	if n := ft.NumOut(); n > 0 && ft.Out(n-1) == errorType {
		if e := out[n-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		out = out[:n-1]
	}
	results := make([]any, len(out))
	for i, o := range out {
		results[i] = o.Interface()
	}
	return results, err
}

// ResolveAndCall resolves every parameter of fn from s and calls it.
func ResolveAndCall(ctx context.Context, s *Scope, fn any) ([]any, error) {
	return Call(ctx, s, fn)
}

// Invoke calls fn like Call and returns its first result as R.
//
//	doubled, err := container.Invoke[int](ctx, scope, func(n int) int { return n * 2 })
func Invoke[R any](ctx context.Context, s *Scope, fn any, prefix ...any) (R, error) {
	var zero R
	out, err := Call(ctx, s, fn, prefix...)
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("%w: %T returns nothing", ErrInvalidHandler, fn)
	}
	r, ok := typed[R](out[0], true)
	if !ok {
		return zero, fmt.Errorf("%w: %T does not return %s", ErrInvalidHandler, fn, KeyOf[R]())
	}
	return r, nil
}

// ResolveAll fills each pointer in targets with the value resolved for the
// pointed-to type. It stops at the first missing or failing dependency.
//
//	var (
//	    cfg  *Config
//	    port int
//	)
//	err := container.ResolveAll(ctx, scope, &cfg, &port)
func ResolveAll(ctx context.Context, s *Scope, targets ...any) error {
	for i, target := range targets {
		tv := reflect.ValueOf(target)
		if tv.Kind() != reflect.Pointer || tv.IsNil() {
			return fmt.Errorf("%w: target %d is %T, want a non-nil pointer", ErrInvalidHandler, i, target)
		}
		v, err := s.argument(ctx, tv.Type().Elem())
		if err != nil {
			return err
		}
		tv.Elem().Set(v)
	}
	return nil
}

// Resolve2 resolves two types at once.
func Resolve2[A, B any](ctx context.Context, s *Scope) (A, B, error) {
	var (
		a   A
		b   B
		err error
	)
	if a, err = Require[A](ctx, s); err != nil {
		return a, b, err
	}
	b, err = Require[B](ctx, s)
	return a, b, err
}

// Resolve3 resolves three types at once.
func Resolve3[A, B, C any](ctx context.Context, s *Scope) (A, B, C, error) {
	var c C
	a, b, err := Resolve2[A, B](ctx, s)
	if err != nil {
		return a, b, c, err
	}
	c, err = Require[C](ctx, s)
	return a, b, c, err
}

// Resolve4 resolves four types at once.
func Resolve4[A, B, C, D any](ctx context.Context, s *Scope) (A, B, C, D, error) {
	var d D
	a, b, c, err := Resolve3[A, B, C](ctx, s)
	if err != nil {
		return a, b, c, d, err
	}
	d, err = Require[D](ctx, s)
	return a, b, c, d, err
}

// argument produces a reflect.Value of type t for injection.
func (s *Scope) argument(ctx context.Context, t reflect.Type) (reflect.Value, error) {
	switch t {
	case contextType:
		return reflect.ValueOf(&ctx).Elem(), nil
	case scopeType:
		return reflect.ValueOf(s), nil
	}
	key := KeyFor(t)
	v, ok, err := s.lookup(ctx, key)
	if err != nil {
		return reflect.Value{}, err
	}
	if !ok {
		return reflect.Value{}, &MissingDependencyError{Key: key}
	}
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, &MissingDependencyError{Key: key}
	}
	return rv, nil
}
