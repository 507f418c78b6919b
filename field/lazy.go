package field

import "reflect"

// Resetter is implemented by fields holding a cached value.
type Resetter interface {
	Reset()
}

// Lazy is a read-only field whose value is produced on first read and cached
// until Reset. It does not track what the producer read; the owner must call
// Reset whenever those inputs may have changed.
type Lazy[T any] struct {
	name      string
	produce   func() T
	value     T
	evaluated bool
}

// NewLazy returns an unevaluated lazy field. produce must not be nil.
func NewLazy[T any](name string, produce func() T) *Lazy[T] {
	return &Lazy[T]{name: name, produce: produce}
}

func (l *Lazy[T]) Name() string            { return l.name }
func (l *Lazy[T]) Type() string            { return TypeLazy }
func (l *Lazy[T]) ValueType() reflect.Type { return reflect.TypeFor[T]() }
func (l *Lazy[T]) Any() any                { return l.Get() }

// Get returns the cached value, running the producer if needed.
func (l *Lazy[T]) Get() T {
	if !l.evaluated {
		l.value = l.produce()
		l.evaluated = true
	}
	return l.value
}

// Reset discards the cached value. The next Get runs the producer again.
func (l *Lazy[T]) Reset() { l.evaluated = false }

// Evaluated reports whether a cached value is held.
func (l *Lazy[T]) Evaluated() bool { return l.evaluated }
