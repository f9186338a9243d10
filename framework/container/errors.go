package container

import (
	"errors"
)

var (
	// ErrNoActiveTask is returned by NewTaskScope when the context does not
	// belong to a task (see WithTask, RunTask and Go).
	ErrNoActiveTask = errors.New("container: no active task")

	// ErrNotFound is the root of every "nothing registered" error returned by
	// Require and the injection helpers. Get reports absence with ok=false.
	ErrNotFound = errors.New("container: not found")

	// ErrInvalidHandler is returned when Call receives something that is not
	// a function, or prefix arguments that do not fit its parameters.
	ErrInvalidHandler = errors.New("container: invalid handler")

	// ErrNilResolver is the panic value used when a nil resolver is registered.
	ErrNilResolver = errors.New("container: nil resolver")
)

// MissingDependencyError reports a type with neither a stored value nor a
// resolver anywhere on the scope's fallback chain.
type MissingDependencyError struct {
	Key TypeKey
}

func (e *MissingDependencyError) Error() string {
	return "container: no value or resolver registered for [" + e.Key.String() + "]"
}

// Unwrap lets errors.Is(err, ErrNotFound) match.
func (e *MissingDependencyError) Unwrap() error { return ErrNotFound }

// ResolveError wraps an error returned by a user resolver with the key that
// was being resolved.
type ResolveError struct {
	Key TypeKey
	Err error
}

func (e *ResolveError) Error() string {
	return "container: resolving [" + e.Key.String() + "]: " + e.Err.Error()
}

func (e *ResolveError) Unwrap() error { return e.Err }

// wrapResolveErr keeps the innermost key when resolvers nest.
func wrapResolveErr(key TypeKey, err error) error {
	if err == nil {
		return nil
	}
	var re *ResolveError
	if errors.As(err, &re) {
		return err
	}
	return &ResolveError{Key: key, Err: err}
}
