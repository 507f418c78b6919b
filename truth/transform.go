package truth

import (
	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/model"
	"github.com/signalsfoundry/psim/types"
)

// TransformPosition publishes vector.ecef, the ECEF expression of the ECI
// position held in vector. It reads prefix.earth.q.ecef_eci.
type TransformPosition struct {
	model.Base

	r field.Readable[types.Vector3]
	q field.Readable[types.Vector4]
}

// NewTransformPosition constructs the transform for the field vector.
func NewTransformPosition(_ *config.Configuration, prefix, vector string) (*TransformPosition, error) {
	m := &TransformPosition{}
	model.Gets(&m.Base, vector, &m.r)
	model.Gets(&m.Base, model.Join(prefix, "earth.q.ecef_eci"), &m.q)
	model.AddsLazy(&m.Base, vector+".ecef", func() types.Vector3 {
		return rotateFrame(m.q.Get(), m.r.Get())
	})
	return m, nil
}

// TransformPositionECEF publishes vector.eci, the ECI expression of the ECEF
// position held in vector. It reads prefix.earth.q.eci_ecef.
type TransformPositionECEF struct {
	model.Base

	r field.Readable[types.Vector3]
	q field.Readable[types.Vector4]
}

// NewTransformPositionECEF constructs the transform for the field vector.
func NewTransformPositionECEF(_ *config.Configuration, prefix, vector string) (*TransformPositionECEF, error) {
	m := &TransformPositionECEF{}
	model.Gets(&m.Base, vector, &m.r)
	model.Gets(&m.Base, model.Join(prefix, "earth.q.eci_ecef"), &m.q)
	model.AddsLazy(&m.Base, vector+".eci", func() types.Vector3 {
		return rotateFrame(m.q.Get(), m.r.Get())
	})
	return m, nil
}

// TransformVelocity publishes vector.ecef, the velocity relative to the
// rotating Earth of the ECI velocity held in vector, for the ECI position
// held in position. It reads prefix.earth.q.ecef_eci and prefix.earth.w.
type TransformVelocity struct {
	model.Base

	r field.Readable[types.Vector3]
	v field.Readable[types.Vector3]
	q field.Readable[types.Vector4]
	w field.Readable[types.Vector3]
}

// NewTransformVelocity constructs the transform for the field vector.
func NewTransformVelocity(_ *config.Configuration, prefix, position, vector string) (*TransformVelocity, error) {
	m := &TransformVelocity{}
	model.Gets(&m.Base, position, &m.r)
	model.Gets(&m.Base, vector, &m.v)
	model.Gets(&m.Base, model.Join(prefix, "earth.q.ecef_eci"), &m.q)
	model.Gets(&m.Base, model.Join(prefix, "earth.w"), &m.w)
	model.AddsLazy(&m.Base, vector+".ecef", func() types.Vector3 {
		r, v, w := m.r.Get(), m.v.Get(), m.w.Get()
		wr := cross(w, r)
		rel := types.Vector3{v[0] - wr[0], v[1] - wr[1], v[2] - wr[2]}
		return rotateFrame(m.q.Get(), rel)
	})
	return m, nil
}
