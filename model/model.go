// Package model defines the three-phase contract shared by every simulation
// component and the composite that runs a list of components in order.
//
// A simulation drives its root model through three phases. AddFields
// registers the fields a model owns, GetFields resolves the fields it reads
// from other models, and Step advances the model by one tick. Every model in
// the tree completes AddFields before any model runs GetFields, so
// dependency lookups never depend on declaration order.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/state"
)

// ErrWiring is returned when a declared dependency cannot be resolved.
var ErrWiring = errors.New("model: wiring failed")

//go:generate mockgen -destination=mock_model_test.go -package=model . Model

// Model is a simulation component.
type Model interface {
	AddFields(s *state.State) error
	GetFields(s *state.State) error
	Step() error
}

// Join builds a field name from a prefix and a relative name. An empty
// prefix yields name unchanged.
func Join(prefix string, names ...string) string {
	parts := make([]string, 0, len(names)+1)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	for _, n := range names {
		if n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, ".")
}

// GetField resolves a readable field of type T.
func GetField[T any](s *state.State, name string) (field.Readable[T], error) {
	f, err := s.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWiring, err)
	}
	r, err := field.As[T](f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWiring, err)
	}
	return r, nil
}

// GetWritableField resolves a writable field of type T.
func GetWritableField[T any](s *state.State, name string) (field.Writable[T], error) {
	f, err := s.LookupWritable(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWiring, err)
	}
	w, err := field.AsWritable[T](f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWiring, err)
	}
	return w, nil
}
