package simulations

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/simulation"
	"github.com/signalsfoundry/psim/types"
)

func TestCatalogNames(t *testing.T) {
	var names []string
	for _, e := range Entries() {
		names = append(names, e.Name)
	}
	want := []string{"dual_orbit", "single_orbit", "time"}
	if len(names) != len(want) {
		t.Fatalf("Entries() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Entries() = %v, want %v", names, want)
		}
	}
	if _, err := Lookup("nope"); !errors.Is(err, ErrUnknownSimulation) {
		t.Fatalf("Lookup(nope) err = %v, want ErrUnknownSimulation", err)
	}
	if err := Register(Entry{Name: "time", Factory: Time}); !errors.Is(err, ErrExists) {
		t.Fatalf("Register duplicate err = %v, want ErrExists", err)
	}
}

func TestSingleOrbit(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "single_orbit.cfg"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sim, err := New(cfg, "single_orbit")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, name := range []string{
		"truth.t.ns", "truth.earth.gmst", "truth.sun.s.eci",
		"truth.leader.orbit.r", "truth.leader.orbit.r.ecef", "truth.leader.orbit.v.ecef",
		"truth.leader.orbit.r.norm", "truth.leader.orbit.v.norm",
	} {
		if !sim.Has(name) {
			t.Fatalf("missing field %s in %v", name, sim.Fields())
		}
	}
	for i := 0; i < 60; i++ {
		if err := sim.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	tns, _ := simulation.Value[types.Integer](sim, "truth.t.ns")
	if tns != 60e9 {
		t.Fatalf("t.ns = %d, want 60e9", tns)
	}
	rn, err := simulation.Value[types.Real](sim, "truth.leader.orbit.r.norm")
	if err != nil {
		t.Fatalf("r.norm: %v", err)
	}
	if rn < 6.6e6 || rn > 6.8e6 {
		t.Fatalf("r.norm = %v, want about 6.72e6", rn)
	}
}

func TestDualOrbit(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "dual_orbit.cfg"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sim, err := New(cfg, "dual_orbit")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, sat := range []string{"leader", "follower"} {
		for _, suffix := range []string{"orbit.r", "orbit.v", "orbit.r.ecef", "orbit.v.ecef", "orbit.r.norm", "orbit.v.norm"} {
			if name := "truth." + sat + "." + suffix; !sim.Has(name) {
				t.Fatalf("missing field %s in %v", name, sim.Fields())
			}
		}
	}
	for _, name := range []string{"truth.t.ns", "truth.earth.gmst", "truth.sun.s.eci"} {
		if !sim.Has(name) {
			t.Fatalf("missing shared field %s", name)
		}
	}

	for i := 0; i < 30; i++ {
		if err := sim.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		leader, _ := simulation.Value[types.Vector3](sim, "truth.leader.orbit.r")
		follower, _ := simulation.Value[types.Vector3](sim, "truth.follower.orbit.r")
		d := math.Sqrt((leader[0]-follower[0])*(leader[0]-follower[0]) +
			(leader[1]-follower[1])*(leader[1]-follower[1]) +
			(leader[2]-follower[2])*(leader[2]-follower[2]))
		// 0.1 deg of mean anomaly on a 6.72e6 m orbit is about 11.7 km.
		if d < 5e3 || d > 20e3 {
			t.Fatalf("step %d: separation = %v m, want about 11.7e3", i, d)
		}
	}

	if _, err := New(config.Empty(), "dual_orbit"); err == nil {
		t.Fatalf("New with empty config succeeded")
	}
	single, err := config.Load(filepath.Join("testdata", "single_orbit.cfg"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := New(single, "dual_orbit"); !errors.Is(err, config.ErrKeyNotFound) {
		t.Fatalf("New without follower TLE err = %v, want ErrKeyNotFound", err)
	}
}

func TestDeterministicReplay(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "single_orbit.cfg"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	run := func() []types.Vector3 {
		sim, err := New(cfg, "single_orbit")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		var out []types.Vector3
		for i := 0; i < 10; i++ {
			if err := sim.Step(); err != nil {
				t.Fatalf("Step: %v", err)
			}
			r, _ := simulation.Value[types.Vector3](sim, "truth.leader.orbit.r.ecef")
			out = append(out, r)
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		for j := range a[i] {
			if math.Float64bits(a[i][j]) != math.Float64bits(b[i][j]) {
				t.Fatalf("step %d differs between runs: %v vs %v", i, a[i], b[i])
			}
		}
	}
}

func TestTimeEntry(t *testing.T) {
	cfg, err := config.FromValues(map[string]any{"truth.dt.ns": 5})
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	sim, err := New(cfg, "time")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sim.Name() != "time" {
		t.Fatalf("Name() = %q, want time", sim.Name())
	}
	if _, err := New(config.Empty(), "time"); !errors.Is(err, config.ErrKeyNotFound) {
		t.Fatalf("New without dt err = %v, want ErrKeyNotFound", err)
	}
}
