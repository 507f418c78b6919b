// Package field implements the typed, named values that models exchange
// through a state registry: parameters, eagerly stored fields and lazily
// evaluated fields.
package field

import (
	"errors"
	"fmt"
	"reflect"
)

// Type tags reported by Field.Type.
const (
	TypeParameter = "parameter"
	TypeValued    = "state_field_valued"
	TypeLazy      = "state_field_lazy"
)

var (
	// ErrTypeMismatch is returned when a field is accessed as a value type
	// other than the one it was constructed with.
	ErrTypeMismatch = errors.New("field: type mismatch")
	// ErrNotWritable is returned when mutable access is requested from a
	// read-only field.
	ErrNotWritable = errors.New("field: not writable")
)

// Field is the type-erased readable capability shared by every field.
type Field interface {
	Name() string
	// Type returns the kind tag, one of the Type* constants.
	Type() string
	// ValueType is the Go type of the value held by the field.
	ValueType() reflect.Type
	// Any returns the current value boxed in an interface.
	Any() any
}

// WritableField is a Field whose value can be replaced at runtime.
type WritableField interface {
	Field
	// SetAny replaces the value. The dynamic type of v must be exactly the
	// field's value type.
	SetAny(v any) error
}

// Readable is a Field with typed read access.
type Readable[T any] interface {
	Field
	Get() T
}

// Writable is a Readable with typed mutable access. Ptr aliases the stored
// value: writes through it are observed by every reader.
type Writable[T any] interface {
	Readable[T]
	SetAny(v any) error
	Ptr() *T
	Set(v T)
}

// As returns f as a Readable[T] if f holds a value of exactly type T.
func As[T any](f Field) (Readable[T], error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil field", ErrTypeMismatch)
	}
	r, ok := f.(Readable[T])
	if !ok {
		return nil, mismatch[T](f)
	}
	return r, nil
}

// AsWritable returns f as a Writable[T]. It fails with ErrNotWritable if f is
// read-only and with ErrTypeMismatch if f does not hold a T.
func AsWritable[T any](f Field) (Writable[T], error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil field", ErrTypeMismatch)
	}
	if w, ok := f.(Writable[T]); ok {
		return w, nil
	}
	if _, ok := f.(Readable[T]); ok {
		return nil, fmt.Errorf("%w: %q (%s)", ErrNotWritable, f.Name(), f.Type())
	}
	return nil, mismatch[T](f)
}

// Value reads the current value of f as a T.
func Value[T any](f Field) (T, error) {
	r, err := As[T](f)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.Get(), nil
}

func mismatch[T any](f Field) error {
	return fmt.Errorf("%w: %q holds %s, requested %s", ErrTypeMismatch, f.Name(), f.ValueType(), reflect.TypeFor[T]())
}

func setAny[T any](name string, dst *T, v any) error {
	x, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: %q holds %s, got %T", ErrTypeMismatch, name, reflect.TypeFor[T](), v)
	}
	*dst = x
	return nil
}
