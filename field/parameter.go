package field

import (
	"fmt"
	"reflect"
)

// Parameter is a named constant of fixed type. The zero value is an unnamed
// parameter holding the zero T.
type Parameter[T any] struct {
	name  string
	value T
}

// NewParameter returns a parameter called name holding value.
func NewParameter[T any](name string, value T) *Parameter[T] {
	return &Parameter[T]{name: name, value: value}
}

func (p *Parameter[T]) Name() string            { return p.name }
func (p *Parameter[T]) Type() string            { return TypeParameter }
func (p *Parameter[T]) ValueType() reflect.Type { return reflect.TypeFor[T]() }
func (p *Parameter[T]) Any() any                { return p.value }

// Get returns the held value.
func (p *Parameter[T]) Get() T { return p.value }

// Ptr gives mutable access for tuning.
func (p *Parameter[T]) Ptr() *T { return &p.value }

// AsParameter returns f as a *Parameter[T] if it is one.
func AsParameter[T any](f Field) (*Parameter[T], error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil field", ErrTypeMismatch)
	}
	p, ok := f.(*Parameter[T])
	if !ok {
		return nil, mismatch[T](f)
	}
	return p, nil
}
