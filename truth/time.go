// Package truth contains the models that produce the true simulated
// environment: time, Earth orientation, the sun and satellite orbits.
package truth

import (
	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/model"
	"github.com/signalsfoundry/psim/types"
)

// Time keeps simulation time in integer nanoseconds.
//
// Fields, relative to prefix:
//
//	t.ns   Integer  writable, initial value from config (default 0)
//	dt.ns  Integer  writable, initial value from config (required)
//	t.s    Real     lazy, t.ns in seconds
//	dt.s   Real     lazy, dt.ns in seconds
type Time struct {
	model.Base

	tNs  *field.Valued[types.Integer]
	dtNs *field.Valued[types.Integer]
}

// NewTime constructs a Time model under prefix.
func NewTime(cfg *config.Configuration, prefix string) (*Time, error) {
	m := &Time{}
	var err error
	if m.tNs, err = model.AddsFromConfigOr(&m.Base, cfg, model.Join(prefix, "t.ns"), types.Integer(0)); err != nil {
		return nil, err
	}
	if m.dtNs, err = model.AddsFromConfig[types.Integer](&m.Base, cfg, model.Join(prefix, "dt.ns")); err != nil {
		return nil, err
	}
	model.AddsLazy(&m.Base, model.Join(prefix, "t.s"), func() types.Real {
		return types.Real(m.tNs.Get()) / 1e9
	})
	model.AddsLazy(&m.Base, model.Join(prefix, "dt.s"), func() types.Real {
		return types.Real(m.dtNs.Get()) / 1e9
	})
	return m, nil
}

// Step advances t.ns by dt.ns.
func (m *Time) Step() error {
	m.ResetLazies()
	*m.tNs.Ptr() += m.dtNs.Get()
	return nil
}
