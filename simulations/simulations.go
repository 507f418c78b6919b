// Package simulations is the catalog of named simulation layouts.
package simulations

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/model"
	"github.com/signalsfoundry/psim/simulation"
	"github.com/signalsfoundry/psim/truth"
	"github.com/signalsfoundry/psim/types"
	"github.com/signalsfoundry/psim/utilities"
)

// TruthPrefix is the namespace of every truth model in the catalog.
const TruthPrefix = "truth"

var (
	// ErrUnknownSimulation is returned by Lookup for unregistered names.
	ErrUnknownSimulation = errors.New("simulations: unknown simulation")
	// ErrExists is returned when a name is registered twice.
	ErrExists = errors.New("simulations: already registered")
)

// Entry describes a catalog simulation.
type Entry struct {
	Name        string
	Description string
	Factory     simulation.Factory
}

var (
	mu      sync.RWMutex
	entries = map[string]Entry{}
)

func init() {
	for _, e := range []Entry{
		{Name: "time", Description: "simulation clock only", Factory: Time},
		{Name: "single_orbit", Description: "clock, Earth, sun and one SGP4 satellite", Factory: SingleOrbit},
		{Name: "dual_orbit", Description: "clock, Earth, sun and the SGP4 satellites leader and follower", Factory: DualOrbit},
	} {
		if err := Register(e); err != nil {
			panic(err)
		}
	}
}

// Register adds e to the catalog.
func Register(e Entry) error {
	if e.Name == "" || e.Factory == nil {
		return fmt.Errorf("simulations: entry needs a name and a factory")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := entries[e.Name]; exists {
		return fmt.Errorf("%w: %q", ErrExists, e.Name)
	}
	entries[e.Name] = e
	return nil
}

// Lookup returns the entry registered as name.
func Lookup(name string) (Entry, error) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownSimulation, name)
	}
	return e, nil
}

// Entries returns every entry sorted by name.
func Entries() []Entry {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// New builds the catalog simulation name from cfg.
func New(cfg *config.Configuration, name string, opts ...simulation.Option) (*simulation.Simulation, error) {
	e, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return simulation.New(cfg, name, e.Factory, opts...)
}

// Time is the clock alone.
func Time(cfg *config.Configuration, _ string) (model.Model, error) {
	return truth.NewTime(cfg, TruthPrefix)
}

// SingleOrbit propagates the satellite "leader" with the Earth and sun
// ephemerides and publishes its ECEF state and orbit magnitudes.
func SingleOrbit(cfg *config.Configuration, _ string) (model.Model, error) {
	return orbits(cfg, "leader")
}

// DualOrbit is SingleOrbit for the satellites "leader" and "follower",
// sharing one clock, Earth and sun.
func DualOrbit(cfg *config.Configuration, _ string) (model.Model, error) {
	return orbits(cfg, "leader", "follower")
}

func orbits(cfg *config.Configuration, sats ...string) (model.Model, error) {
	const p = TruthPrefix
	l := model.NewList()
	errs := []error{
		l.Add(truth.NewTime(cfg, p)),
		l.Add(truth.NewEarth(cfg, p)),
		l.Add(truth.NewSun(cfg, p)),
	}
	for _, sat := range sats {
		errs = append(errs, addSatellite(l, cfg, sat))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return l, nil
}

// addSatellite adds the orbit of sat, its ECEF state and its orbit
// magnitudes.
func addSatellite(l *model.List, cfg *config.Configuration, sat string) error {
	const p = TruthPrefix
	r := model.Join(p, sat, "orbit.r")
	v := model.Join(p, sat, "orbit.v")
	return errors.Join(
		l.Add(truth.NewOrbitSGP4(cfg, p, sat)),
		l.Add(truth.NewTransformPosition(cfg, p, r)),
		l.Add(truth.NewTransformVelocity(cfg, p, r, v)),
		l.Add(utilities.NewNormVector[types.Vector3](cfg, r)),
		l.Add(utilities.NewNormVector[types.Vector3](cfg, v)),
	)
}
