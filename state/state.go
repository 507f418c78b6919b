// Package state provides the name-indexed registry through which models
// publish and discover fields.
package state

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/psim/field"
)

var (
	// ErrFieldNotFound is returned by Lookup for an unregistered name.
	ErrFieldNotFound = errors.New("state: field not found")
	// ErrDuplicateField is returned when a name is registered twice.
	ErrDuplicateField = errors.New("state: duplicate field")
	// ErrInvalidField is returned for nil or unnamed fields.
	ErrInvalidField = errors.New("state: invalid field")
)

// State indexes fields by name. It holds references only: the registering
// model keeps ownership and must outlive the State. Every writable field is
// also present in the readable index under the same name.
//
// State is not safe for concurrent use.
type State struct {
	readable map[string]field.Field
	writable map[string]field.WritableField
	order    []string
}

// New constructs an empty State.
func New() *State {
	return &State{
		readable: make(map[string]field.Field),
		writable: make(map[string]field.WritableField),
	}
}

// Add registers f for read access.
func (s *State) Add(f field.Field) error {
	if err := s.checkNew(f); err != nil {
		return err
	}
	s.readable[f.Name()] = f
	s.order = append(s.order, f.Name())
	return nil
}

// AddWritable registers f for both read and write access.
func (s *State) AddWritable(f field.WritableField) error {
	if err := s.checkNew(f); err != nil {
		return err
	}
	s.readable[f.Name()] = f
	s.writable[f.Name()] = f
	s.order = append(s.order, f.Name())
	return nil
}

func (s *State) checkNew(f field.Field) error {
	if f == nil {
		return fmt.Errorf("%w: nil", ErrInvalidField)
	}
	name := f.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name (%s)", ErrInvalidField, f.Type())
	}
	if _, exists := s.readable[name]; exists {
		return fmt.Errorf("%w: %q already exists", ErrDuplicateField, name)
	}
	return nil
}

// Has reports whether name is registered for read access.
func (s *State) Has(name string) bool {
	_, ok := s.readable[name]
	return ok
}

// HasWritable reports whether name is registered for write access.
func (s *State) HasWritable(name string) bool {
	_, ok := s.writable[name]
	return ok
}

// Get returns the field registered as name, or nil if not found.
func (s *State) Get(name string) field.Field {
	return s.readable[name]
}

// GetWritable returns the writable field registered as name, or nil if not
// found or registered read-only.
func (s *State) GetWritable(name string) field.WritableField {
	return s.writable[name]
}

// Lookup returns the field registered as name or ErrFieldNotFound.
func (s *State) Lookup(name string) (field.Field, error) {
	f, ok := s.readable[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	return f, nil
}

// LookupWritable returns the writable field registered as name. Unknown
// names yield ErrFieldNotFound and read-only ones field.ErrNotWritable.
func (s *State) LookupWritable(name string) (field.WritableField, error) {
	if w, ok := s.writable[name]; ok {
		return w, nil
	}
	if f, ok := s.readable[name]; ok {
		return nil, fmt.Errorf("%w: %q (%s)", field.ErrNotWritable, name, f.Type())
	}
	return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
}

// Names returns every registered name in registration order.
func (s *State) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of readable fields.
func (s *State) Len() int { return len(s.readable) }

// WritableLen returns the number of writable fields.
func (s *State) WritableLen() int { return len(s.writable) }
