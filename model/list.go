package model

import (
	"fmt"

	"github.com/signalsfoundry/psim/state"
)

// List runs its children in insertion order in every phase, after its own
// Base declarations. It owns its children.
type List struct {
	Base
	models []Model
}

// NewList constructs an empty List.
func NewList() *List { return &List{} }

// Add appends m unless err is non-nil, so a constructor call can be passed
// directly:
//
//	if err := l.Add(truth.NewTime(cfg, "truth")); err != nil { ... }
func (l *List) Add(m Model, err error) error {
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("model: nil child")
	}
	l.models = append(l.models, m)
	return nil
}

// Append adds already constructed children.
func (l *List) Append(models ...Model) {
	l.models = append(l.models, models...)
}

// Len returns the number of children.
func (l *List) Len() int { return len(l.models) }

// Models returns a copy of the children in order.
func (l *List) Models() []Model {
	out := make([]Model, len(l.models))
	copy(out, l.models)
	return out
}

func (l *List) AddFields(s *state.State) error {
	if err := l.Base.AddFields(s); err != nil {
		return err
	}
	for i, m := range l.models {
		if err := m.AddFields(s); err != nil {
			return fmt.Errorf("model %d (%T): add fields: %w", i, m, err)
		}
	}
	return nil
}

func (l *List) GetFields(s *state.State) error {
	if err := l.Base.GetFields(s); err != nil {
		return err
	}
	for i, m := range l.models {
		if err := m.GetFields(s); err != nil {
			return fmt.Errorf("model %d (%T): get fields: %w", i, m, err)
		}
	}
	return nil
}

func (l *List) Step() error {
	l.ResetLazies()
	for i, m := range l.models {
		if err := m.Step(); err != nil {
			return fmt.Errorf("model %d (%T): step: %w", i, m, err)
		}
	}
	return nil
}
