package truth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/model"
	"github.com/signalsfoundry/psim/state"
	"github.com/signalsfoundry/psim/types"
)

// ErrInvalidTLE is returned for malformed two-line element sets.
var ErrInvalidTLE = errors.New("truth: invalid TLE")

const kmToM = 1000.0

// OrbitSGP4 propagates a satellite from a two-line element set with SGP4.
//
// Config keys, relative to prefix.satellite: tle.line1 and tle.line2. It reads
// prefix.earth.utc.ns and writes, relative to prefix.satellite:
//
//	orbit.r  Vector3  ECI position, m
//	orbit.v  Vector3  ECI velocity, m/s
//
// SGP4 is evaluated at whole seconds; sub-second instants are interpolated
// linearly between the neighbouring seconds.
type OrbitSGP4 struct {
	model.Base

	sat satellite.Satellite
	utc field.Readable[types.Integer]
	r   *field.Valued[types.Vector3]
	v   *field.Valued[types.Vector3]
}

// NewOrbitSGP4 constructs an SGP4 orbit for satellite under prefix.
func NewOrbitSGP4(cfg *config.Configuration, prefix, sat string) (*OrbitSGP4, error) {
	base := model.Join(prefix, sat)
	line1, err := config.Value[types.String](cfg, model.Join(base, "tle.line1"))
	if err != nil {
		return nil, err
	}
	line2, err := config.Value[types.String](cfg, model.Join(base, "tle.line2"))
	if err != nil {
		return nil, err
	}
	s, err := parseTLE(line1, line2)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", base, err)
	}

	m := &OrbitSGP4{sat: s}
	model.Gets(&m.Base, model.Join(prefix, "earth.utc.ns"), &m.utc)
	m.r = model.AddsWritable(&m.Base, field.NewValued(model.Join(base, "orbit.r"), types.NaN[types.Vector3]()))
	m.v = model.AddsWritable(&m.Base, field.NewValued(model.Join(base, "orbit.v"), types.NaN[types.Vector3]()))
	return m, nil
}

// GetFields resolves the time dependency and seeds orbit.r and orbit.v at
// the wiring instant, so the state is finite before the first Step. The seed
// reads earth.utc.ns once; Earth resets that lazy at the start of every Step,
// so later steps never see the wiring-time value.
func (m *OrbitSGP4) GetFields(s *state.State) error {
	if err := m.Base.GetFields(s); err != nil {
		return err
	}
	return m.update()
}

// Step propagates to the current time.
func (m *OrbitSGP4) Step() error {
	m.ResetLazies()
	return m.update()
}

func (m *OrbitSGP4) update() error {
	t := time.Unix(0, m.utc.Get()).UTC()
	floor := t.Truncate(time.Second)
	r, v := propagate(m.sat, floor)
	if frac := t.Sub(floor).Seconds(); frac > 0 {
		r1, v1 := propagate(m.sat, floor.Add(time.Second))
		r, v = lerp(r, r1, frac), lerp(v, v1, frac)
	}
	if !types.IsFinite(r) || !types.IsFinite(v) {
		return fmt.Errorf("%s: sgp4 diverged at %s", m.r.Name(), t.Format(time.RFC3339Nano))
	}
	m.r.Set(r)
	m.v.Set(v)
	return nil
}

func propagate(sat satellite.Satellite, t time.Time) (types.Vector3, types.Vector3) {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	pos, vel := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
	return types.Vector3{pos.X * kmToM, pos.Y * kmToM, pos.Z * kmToM},
		types.Vector3{vel.X * kmToM, vel.Y * kmToM, vel.Z * kmToM}
}

func lerp(a, b types.Vector3, f float64) types.Vector3 {
	var out types.Vector3
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*f
	}
	return out
}

// parseTLE checks line layout and checksums before handing the set to
// go-satellite, which panics on malformed numbers.
func parseTLE(line1, line2 string) (sat satellite.Satellite, err error) {
	line1, line2 = strings.TrimRight(line1, " \r\n"), strings.TrimRight(line2, " \r\n")
	for i, l := range []string{line1, line2} {
		if len(l) != 69 {
			return sat, fmt.Errorf("%w: line %d has %d characters, want 69", ErrInvalidTLE, i+1, len(l))
		}
		if l[0] != byte('1'+i) || l[1] != ' ' {
			return sat, fmt.Errorf("%w: line %d must start with %q", ErrInvalidTLE, i+1, string(rune('1'+i))+" ")
		}
		if got, want := tleChecksum(l), int(l[68]-'0'); got != want {
			return sat, fmt.Errorf("%w: line %d checksum %d, want %d", ErrInvalidTLE, i+1, got, want)
		}
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidTLE, r)
		}
	}()
	sat = satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return sat, nil
}

func tleChecksum(line string) int {
	sum := 0
	for _, c := range line[:68] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}
