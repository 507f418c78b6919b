package truth

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/model"
	"github.com/signalsfoundry/psim/simulation"
	"github.com/signalsfoundry/psim/types"
)

func TestTransformPositionECEFRoundTrip(t *testing.T) {
	cfg := orbitConfig(t, 7e9)
	sim, err := simulation.New(cfg, "truth", func(cfg *config.Configuration, prefix string) (model.Model, error) {
		l := model.NewList()
		if err := l.Add(NewTime(cfg, prefix)); err != nil {
			return nil, err
		}
		if err := l.Add(NewEarth(cfg, prefix)); err != nil {
			return nil, err
		}
		if err := l.Add(NewOrbitSGP4(cfg, prefix, "leader")); err != nil {
			return nil, err
		}
		if err := l.Add(NewTransformPosition(cfg, prefix, "truth.leader.orbit.r")); err != nil {
			return nil, err
		}
		if err := l.Add(NewTransformPositionECEF(cfg, prefix, "truth.leader.orbit.r.ecef")); err != nil {
			return nil, err
		}
		return l, nil
	})
	if err != nil {
		t.Fatalf("simulation.New: %v", err)
	}
	if !sim.Has("truth.leader.orbit.r.ecef.eci") {
		t.Fatalf("missing truth.leader.orbit.r.ecef.eci")
	}

	for i := 0; i < 3; i++ {
		r := mustValue[types.Vector3](t, sim, "truth.leader.orbit.r")
		ecef := mustValue[types.Vector3](t, sim, "truth.leader.orbit.r.ecef")
		back := mustValue[types.Vector3](t, sim, "truth.leader.orbit.r.ecef.eci")
		if d := r3.Norm(r3.Sub(back.R3(), r.R3())); d > 1e-6 {
			t.Fatalf("step %d: ECEF to ECI round trip off by %v m", i, d)
		}
		if d := r3.Norm(r3.Sub(ecef.R3(), r.R3())); d < 1 {
			t.Fatalf("step %d: ECEF and ECI positions coincide", i)
		}
		if err := sim.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
}
