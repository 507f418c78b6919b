package truth

import (
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/meeus/v3/julian"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/model"
	"github.com/signalsfoundry/psim/types"
)

// Earth derives Earth orientation from simulation time.
//
// It reads prefix.t.ns and the config key prefix.earth.epoch.unix_ns, the
// UTC instant at which t.ns is zero. Lazy outputs, relative to prefix:
//
//	earth.utc.ns      Integer  absolute UTC time, Unix nanoseconds
//	earth.jd          Real     Julian date
//	earth.gmst        Real     Greenwich mean sidereal time, rad
//	earth.q.ecef_eci  Vector4  ECI to ECEF frame rotation, scalar last
//	earth.q.eci_ecef  Vector4  ECEF to ECI frame rotation, scalar last
//	earth.w           Vector3  Earth angular rate in ECI, rad/s
type Earth struct {
	model.Base

	tNs   field.Readable[types.Integer]
	epoch *field.Parameter[types.Integer]
}

// NewEarth constructs an Earth model under prefix.
func NewEarth(cfg *config.Configuration, prefix string) (*Earth, error) {
	key := model.Join(prefix, "earth.epoch.unix_ns")
	epoch, err := config.Value[types.Integer](cfg, key)
	if err != nil {
		return nil, err
	}
	m := &Earth{epoch: field.NewParameter(key, epoch)}
	model.Adds(&m.Base, m.epoch)
	model.Gets(&m.Base, model.Join(prefix, "t.ns"), &m.tNs)

	utc := model.AddsLazy(&m.Base, model.Join(prefix, "earth.utc.ns"), func() types.Integer {
		return m.epoch.Get() + m.tNs.Get()
	})
	jd := model.AddsLazy(&m.Base, model.Join(prefix, "earth.jd"), func() types.Real {
		return julian.TimeToJD(time.Unix(0, utc.Get()).UTC())
	})
	gmst := model.AddsLazy(&m.Base, model.Join(prefix, "earth.gmst"), func() types.Real {
		return satellite.ThetaG_JD(jd.Get())
	})
	qEcefEci := model.AddsLazy(&m.Base, model.Join(prefix, "earth.q.ecef_eci"), func() types.Vector4 {
		return frameRotationZ(gmst.Get())
	})
	model.AddsLazy(&m.Base, model.Join(prefix, "earth.q.eci_ecef"), func() types.Vector4 {
		return conj(qEcefEci.Get())
	})
	model.AddsLazy(&m.Base, model.Join(prefix, "earth.w"), func() types.Vector3 {
		return types.Vector3{0, 0, EarthRate}
	})
	return m, nil
}
