package field

import "reflect"

// Valued is a writable field that stores its value directly.
type Valued[T any] struct {
	name  string
	value T
}

// NewValued returns a field called name initialised to value.
func NewValued[T any](name string, value T) *Valued[T] {
	return &Valued[T]{name: name, value: value}
}

func (v *Valued[T]) Name() string            { return v.name }
func (v *Valued[T]) Type() string            { return TypeValued }
func (v *Valued[T]) ValueType() reflect.Type { return reflect.TypeFor[T]() }
func (v *Valued[T]) Any() any                { return v.value }
func (v *Valued[T]) Get() T                  { return v.value }
func (v *Valued[T]) Ptr() *T                 { return &v.value }
func (v *Valued[T]) Set(x T)                 { v.value = x }

func (v *Valued[T]) SetAny(x any) error { return setAny(v.name, &v.value, x) }
