package utilities

import (
	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/model"
	"github.com/signalsfoundry/psim/types"
)

// NormVector publishes name.norm, the Euclidean norm of the vector field
// name.
type NormVector[T types.Vector] struct {
	model.Base

	in field.Readable[T]
}

// NewNormVector constructs the norm of the field name.
func NewNormVector[T types.Vector](_ *config.Configuration, name string) (*NormVector[T], error) {
	m := &NormVector[T]{}
	model.Gets(&m.Base, name, &m.in)
	model.AddsLazy(&m.Base, name+".norm", func() types.Real {
		return floats.Norm(types.Components(m.in.Get()), 2)
	})
	return m, nil
}
