// Package simulation owns a model tree and the state registry that connects
// it, and advances the tree one step at a time.
package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/internal/logging"
	"github.com/signalsfoundry/psim/model"
	"github.com/signalsfoundry/psim/state"
)

const tracerName = "github.com/signalsfoundry/psim/simulation"

// Factory builds the root model of a simulation. name is the namespace the
// root should place its fields under.
type Factory func(cfg *config.Configuration, name string) (model.Model, error)

// MetricsRecorder receives step timings and registry sizes.
type MetricsRecorder interface {
	ObserveStep(simulation string, d time.Duration, err error)
	SetFieldCounts(simulation string, readable, writable int)
}

// Option customises Simulation construction.
type Option func(*Simulation)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l logging.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Simulation) {
		s.metrics = m
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Simulation) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithHook registers a hook before wiring starts, so it also observes
// HookPosReady.
func WithHook(h Hook) Option {
	return func(s *Simulation) {
		if h != nil {
			s.AcceptHook(h)
		}
	}
}

// WithID sets the run identifier. By default a new one is generated.
func WithID(id string) Option {
	return func(s *Simulation) {
		if id != "" {
			s.id = id
		}
	}
}

// Simulation owns a root model and its state. It is not safe for concurrent
// use; see Shared.
type Simulation struct {
	hookableBase

	id    string
	name  string
	cfg   *config.Configuration
	root  model.Model
	state *state.State
	steps uint64

	log     logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
}

// New builds the root model with factory and wires it: AddFields runs on the
// whole tree, then GetFields runs on the whole tree. Any failure aborts
// construction.
func New(cfg *config.Configuration, name string, factory Factory, opts ...Option) (*Simulation, error) {
	if factory == nil {
		return nil, fmt.Errorf("simulation %q: nil factory", name)
	}
	if cfg == nil {
		cfg = config.Empty()
	}
	s := &Simulation{
		id:     logging.NewRunID(),
		name:   name,
		cfg:    cfg,
		state:  state.New(),
		log:    logging.Noop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.log = s.log.With(logging.String("simulation", name))

	ctx, span := s.tracer.Start(logging.ContextWithRunID(context.Background(), s.id), "simulation.build",
		trace.WithAttributes(s.attrs()...))
	defer span.End()
	log := logging.ForRun(ctx, s.log)

	if err := s.build(ctx, factory); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error(ctx, "simulation build failed", logging.Err(err))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SetFieldCounts(name, s.state.Len(), s.state.WritableLen())
	}
	log.Info(ctx, "simulation ready",
		logging.Int("fields", s.state.Len()),
		logging.Int("writable_fields", s.state.WritableLen()),
	)
	s.invokeHook(HookCtx{Context: logging.ContextWithStep(ctx, 0), Sim: s, Pos: HookPosReady})
	return s, nil
}

func (s *Simulation) build(ctx context.Context, factory Factory) error {
	root, err := factory(s.cfg, s.name)
	if err != nil {
		return fmt.Errorf("simulation %q: build: %w", s.name, err)
	}
	if root == nil {
		return fmt.Errorf("simulation %q: factory returned no model", s.name)
	}
	s.root = root

	_, span := s.tracer.Start(ctx, "simulation.add_fields")
	err = root.AddFields(s.state)
	span.End()
	if err != nil {
		return fmt.Errorf("simulation %q: add fields: %w", s.name, err)
	}
	logging.ForRun(ctx, s.log).Debug(ctx, "fields added", logging.Int("fields", s.state.Len()))

	_, span = s.tracer.Start(ctx, "simulation.get_fields")
	err = root.GetFields(s.state)
	span.End()
	if err != nil {
		return fmt.Errorf("simulation %q: get fields: %w", s.name, err)
	}
	return nil
}

// Step advances the root model once.
func (s *Simulation) Step() error {
	return s.StepContext(context.Background())
}

// StepContext is Step with a context for tracing and hooks. The context is
// not consulted for cancellation inside the step. Hook contexts carry the
// run_id and the hook's step number for logging.ForRun.
func (s *Simulation) StepContext(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := s.tracer.Start(logging.ContextWithRunID(ctx, s.id), "simulation.step",
		trace.WithAttributes(append(s.attrs(), attribute.Int64("psim.step", int64(s.steps)))...))
	defer span.End()

	before := logging.ContextWithStep(ctx, s.steps)
	s.invokeHook(HookCtx{Context: before, Sim: s, Pos: HookPosBeforeStep, Step: s.steps})

	start := time.Now()
	err := s.root.Step()
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveStep(s.name, elapsed, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.ForRun(before, s.log).Error(before, "step failed", logging.Err(err))
		return fmt.Errorf("simulation %q: step %d: %w", s.name, s.steps, err)
	}
	s.steps++
	after := logging.ContextWithStep(ctx, s.steps)
	logging.ForRun(after, s.log).Debug(after, "stepped", logging.Duration("elapsed", elapsed))

	s.invokeHook(HookCtx{Context: after, Sim: s, Pos: HookPosAfterStep, Step: s.steps})
	return nil
}

func (s *Simulation) attrs() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("psim.simulation", s.name),
		attribute.String("psim.run_id", s.id),
	}
}

// Lookup returns the field registered as name or state.ErrFieldNotFound.
func (s *Simulation) Lookup(name string) (field.Field, error) {
	return s.state.Lookup(name)
}

// Get returns the field registered as name, or nil.
func (s *Simulation) Get(name string) field.Field {
	return s.state.Get(name)
}

// GetWritable returns the writable field registered as name, or nil if it is
// unknown or read-only.
func (s *Simulation) GetWritable(name string) field.WritableField {
	return s.state.GetWritable(name)
}

// Has reports whether name is registered.
func (s *Simulation) Has(name string) bool { return s.state.Has(name) }

// Set replaces the value of the writable field name. v must have exactly the
// field's value type.
func (s *Simulation) Set(name string, v any) error {
	w, err := s.state.LookupWritable(name)
	if err != nil {
		return err
	}
	return w.SetAny(v)
}

// Fields returns every registered name in registration order.
func (s *Simulation) Fields() []string { return s.state.Names() }

// Steps returns the number of completed steps.
func (s *Simulation) Steps() uint64 { return s.steps }

// Name returns the simulation name.
func (s *Simulation) Name() string { return s.name }

// ID returns the run identifier.
func (s *Simulation) ID() string { return s.id }

// Config returns the configuration the simulation was built from.
func (s *Simulation) Config() *config.Configuration { return s.cfg }

// Root returns the root model.
func (s *Simulation) Root() model.Model { return s.root }

// Value reads field name of s as a T.
func Value[T any](s *Simulation, name string) (T, error) {
	f, err := s.Lookup(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return field.Value[T](f)
}

// Shared serialises access to a Simulation from several goroutines.
type Shared struct {
	mu  sync.Mutex
	sim *Simulation
}

// NewShared wraps s. s must not be used directly afterwards.
func NewShared(s *Simulation) *Shared {
	return &Shared{sim: s}
}

// Do runs fn while holding the lock.
func (sh *Shared) Do(fn func(*Simulation) error) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return fn(sh.sim)
}

// StepContext steps the simulation while holding the lock.
func (sh *Shared) StepContext(ctx context.Context) error {
	return sh.Do(func(s *Simulation) error { return s.StepContext(ctx) })
}

// Name returns the simulation name.
func (sh *Shared) Name() string { return sh.sim.name }

// ID returns the run identifier.
func (sh *Shared) ID() string { return sh.sim.id }
