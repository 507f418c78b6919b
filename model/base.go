package model

import (
	"fmt"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/state"
)

type declared struct {
	f        field.Field
	writable bool
}

// Base implements the bookkeeping common to most models. A concrete model
// embeds Base, declares its fields and dependencies in its constructor with
// the Adds and Gets helpers, and starts its own Step with ResetLazies.
type Base struct {
	fields []declared
	lazies []field.Resetter
	gets   []func(*state.State) error
}

// AddFields registers every declared field in declaration order.
func (b *Base) AddFields(s *state.State) error {
	for _, d := range b.fields {
		var err error
		if d.writable {
			err = s.AddWritable(d.f.(field.WritableField))
		} else {
			err = s.Add(d.f)
		}
		if err != nil {
			return fmt.Errorf("add %q: %w", d.f.Name(), err)
		}
	}
	return nil
}

// GetFields resolves every declared dependency.
func (b *Base) GetFields(s *state.State) error {
	for _, get := range b.gets {
		if err := get(s); err != nil {
			return err
		}
	}
	return nil
}

// Step resets owned lazy fields.
func (b *Base) Step() error {
	b.ResetLazies()
	return nil
}

// ResetLazies invalidates every lazy field declared on b.
func (b *Base) ResetLazies() {
	for _, l := range b.lazies {
		l.Reset()
	}
}

func (b *Base) declare(f field.Field, writable bool) {
	b.fields = append(b.fields, declared{f: f, writable: writable})
	if r, ok := f.(field.Resetter); ok {
		b.lazies = append(b.lazies, r)
	}
}

// Adds declares f as a read-only output of b and returns it.
func Adds[F field.Field](b *Base, f F) F {
	b.declare(f, false)
	return f
}

// AddsWritable declares f as a writable output of b and returns it.
func AddsWritable[F field.WritableField](b *Base, f F) F {
	b.declare(f, true)
	return f
}

// AddsLazy declares a lazy output computed by produce.
func AddsLazy[T any](b *Base, name string, produce func() T) *field.Lazy[T] {
	return Adds(b, field.NewLazy(name, produce))
}

// AddsFromConfig declares a writable output named key whose initial value is
// read from cfg. The key is mandatory.
func AddsFromConfig[T any](b *Base, cfg *config.Configuration, key string) (*field.Valued[T], error) {
	v, err := config.Value[T](cfg, key)
	if err != nil {
		return nil, err
	}
	return AddsWritable(b, field.NewValued(key, v)), nil
}

// AddsFromConfigOr is AddsFromConfig with a default for an absent key.
func AddsFromConfigOr[T any](b *Base, cfg *config.Configuration, key string, def T) (*field.Valued[T], error) {
	v, err := config.ValueOr(cfg, key, def)
	if err != nil {
		return nil, err
	}
	return AddsWritable(b, field.NewValued(key, v)), nil
}

// Gets declares a dependency on the readable field name. *dst is set during
// GetFields.
func Gets[T any](b *Base, name string, dst *field.Readable[T]) {
	b.gets = append(b.gets, func(s *state.State) error {
		r, err := GetField[T](s, name)
		if err != nil {
			return err
		}
		*dst = r
		return nil
	})
}

// GetsWritable declares a dependency on the writable field name.
func GetsWritable[T any](b *Base, name string, dst *field.Writable[T]) {
	b.gets = append(b.gets, func(s *state.State) error {
		w, err := GetWritableField[T](s, name)
		if err != nil {
			return err
		}
		*dst = w
		return nil
	})
}
