package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"go.uber.org/zap"

	"github.com/km-arc/busybody/framework/container"
)

var (
	writerType  = reflect.TypeFor[http.ResponseWriter]()
	requestType = reflect.TypeFor[*http.Request]()
	errorType   = reflect.TypeFor[error]()
)

type scopeKey struct{}

// WithScope returns a child of ctx that carries s for injected handlers.
func WithScope(ctx context.Context, s *container.Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the scope stored by WithScope, or Global.
func ScopeFrom(ctx context.Context) *container.Scope {
	if s, ok := ctx.Value(scopeKey{}).(*container.Scope); ok && s != nil {
		return s
	}
	return container.Global()
}

// StatusError lets an injected handler choose the response status.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// Errorf builds a StatusError.
func Errorf(status int, format string, args ...any) error {
	return &StatusError{Status: status, Err: fmt.Errorf(format, args...)}
}

// Adapt turns fn into an http.HandlerFunc whose parameters are resolved
// from the request's scope (see WithScope).
//
// fn may start with an http.ResponseWriter, optionally followed by the
// *http.Request; those are passed through. Every other parameter is
// resolved. fn may return nothing, an error, a value, or a value and an
// error. A returned value is written as {"data": v} with status 200.
//
//	router.Get("/price", gohttp.Inject(func(q Quote, d Discount) (Price, error) {
//	    return q.Apply(d)
//	}))
func Adapt(fn any) (http.HandlerFunc, error) {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T is not a function", container.ErrInvalidHandler, fn)
	}
	if ft.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic %s is not supported", container.ErrInvalidHandler, ft)
	}

	passthrough := 0
	if ft.NumIn() > 0 && ft.In(0) == writerType {
		passthrough = 1
		if ft.NumIn() > 1 && ft.In(1) == requestType {
			passthrough = 2
		}
	}

	var returnsValue bool
	switch ft.NumOut() {
	case 0:
	case 1:
		returnsValue = ft.Out(0) != errorType
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("%w: second result of %s must be error", container.ErrInvalidHandler, ft)
		}
		returnsValue = true
	default:
		return nil, fmt.Errorf("%w: %s returns too many values", container.ErrInvalidHandler, ft)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s := ScopeFrom(ctx)

		prefix := []any{w, r}[:passthrough]
		out, err := container.Call(ctx, s, fn, prefix...)
		res := NewResponse(w)
		if err != nil {
			writeError(ctx, s, res, err)
			return
		}
		if returnsValue {
			res.Success(out[0])
		}
	}, nil
}

// Inject is Adapt for route registration. It panics if fn cannot be adapted.
func Inject(fn any) http.HandlerFunc {
	h, err := Adapt(fn)
	if err != nil {
		panic(err)
	}
	return h
}

func writeError(ctx context.Context, s *container.Scope, res *Response, err error) {
	var se *StatusError
	if errors.As(err, &se) {
		res.Error(se.Status, se.Error())
		return
	}
	if l, ok, _ := container.Get[*zap.Logger](ctx, s); ok {
		id, _, _ := container.Get[RequestID](ctx, s)
		l.Error("handler failed", zap.String("request_id", string(id)), zap.Error(err))
	}
	res.ServerError()
}
