// Package utilities holds small generic models that derive fields from
// other fields.
package utilities

import (
	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/model"
	"github.com/signalsfoundry/psim/types"
)

// ExponentialFilter low-pass filters the field name into name.filtered:
//
//	x = alpha*z + (1-alpha)*x
//
// where z is the current input. The output starts as NaN and any non-finite
// output restarts the filter from the next input. alpha is read from the
// config key name.alpha and published as a parameter under the same name.
type ExponentialFilter[T types.Numeric] struct {
	model.Base

	in    field.Readable[T]
	alpha *field.Parameter[types.Real]
	out   *field.Valued[T]
}

// NewExponentialFilter constructs a filter for the field name.
func NewExponentialFilter[T types.Numeric](cfg *config.Configuration, name string) (*ExponentialFilter[T], error) {
	key := name + ".alpha"
	alpha, err := config.Value[types.Real](cfg, key)
	if err != nil {
		return nil, err
	}
	m := &ExponentialFilter[T]{alpha: field.NewParameter(key, alpha)}
	model.Gets(&m.Base, name, &m.in)
	model.Adds(&m.Base, m.alpha)
	m.out = model.AddsWritable(&m.Base, field.NewValued(name+".filtered", types.NaN[T]()))
	return m, nil
}

// Step folds the current input into the filtered value.
func (m *ExponentialFilter[T]) Step() error {
	m.ResetLazies()
	m.out.Set(filter(m.out.Get(), m.alpha.Get(), m.in.Get()))
	return nil
}

func filter[T types.Numeric](x T, alpha types.Real, z T) T {
	if !types.IsFinite(x) {
		return z
	}
	dst := make([]types.Real, len(types.Components(z)))
	floats.ScaleTo(dst, alpha, types.Components(z))
	floats.AddScaled(dst, 1-alpha, types.Components(x))
	out, _ := types.FromComponents[T](dst)
	return out
}
