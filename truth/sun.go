package truth

import (
	"math"

	"github.com/soniakeys/meeus/v3/solar"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/model"
	"github.com/signalsfoundry/psim/types"
)

// Sun publishes the apparent direction to the sun, prefix.sun.s.eci, as a
// unit vector in the equatorial frame of date. It reads prefix.earth.jd.
// The difference between UTC and dynamical time is ignored.
type Sun struct {
	model.Base

	jd field.Readable[types.Real]
}

// NewSun constructs a Sun model under prefix.
func NewSun(_ *config.Configuration, prefix string) (*Sun, error) {
	m := &Sun{}
	model.Gets(&m.Base, model.Join(prefix, "earth.jd"), &m.jd)
	model.AddsLazy(&m.Base, model.Join(prefix, "sun.s.eci"), func() types.Vector3 {
		ra, dec := solar.ApparentEquatorial(m.jd.Get())
		sa, ca := math.Sincos(ra.Rad())
		sd, cd := math.Sincos(dec.Rad())
		return types.Vector3{cd * ca, cd * sa, sd}
	})
	return m, nil
}
