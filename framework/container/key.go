package container

import (
	"cmp"
	"reflect"
)

// TypeKey identifies a registered type. Two keys are equal iff they were
// derived from the identical Go type, so every generic instantiation gets
// its own key.
//
//	container.KeyOf[*Mailer]()       // "*app.Mailer"
//	container.KeyOf[Cache[string]]() // distinct from Cache[int]
type TypeKey struct {
	rt reflect.Type
}

// KeyOf returns the key for T. Interface types are keyed by the interface
// itself, not by whatever concrete value ends up stored under it.
func KeyOf[T any]() TypeKey {
	return TypeKey{rt: reflect.TypeFor[T]()}
}

// KeyFor returns the key for an already reflected type.
func KeyFor(t reflect.Type) TypeKey {
	return TypeKey{rt: t}
}

// Type returns the underlying reflect.Type (nil for the zero key).
func (k TypeKey) Type() reflect.Type { return k.rt }

// IsZero reports whether k was never derived from a type.
func (k TypeKey) IsZero() bool { return k.rt == nil }

// String returns the package-qualified type name.
func (k TypeKey) String() string {
	if k.rt == nil {
		return "<nil>"
	}
	if k.rt.Name() != "" && k.rt.PkgPath() != "" {
		return k.rt.PkgPath() + "." + k.rt.Name()
	}
	return k.rt.String()
}

// Compare orders keys by their string form. Distinct types that print the
// same (e.g. two local types in different functions) compare equal here but
// are still different map keys.
func (k TypeKey) Compare(other TypeKey) int {
	return cmp.Compare(k.String(), other.String())
}
