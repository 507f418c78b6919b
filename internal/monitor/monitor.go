// Package monitor serves a JSON HTTP API for inspecting and driving a
// running simulation.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/internal/logging"
	"github.com/signalsfoundry/psim/internal/simserver"
	"github.com/signalsfoundry/psim/simulation"
	"github.com/signalsfoundry/psim/state"
	"github.com/signalsfoundry/psim/timectrl"
)

// DefaultTimeField is the field reported by /api/now.
const DefaultTimeField = "truth.t.s"

// Monitor exposes a shared simulation over HTTP.
type Monitor struct {
	sim     *simulation.Shared
	runner  *timectrl.Runner
	metrics http.Handler
	log     logging.Logger

	timeField string

	// cancel and stopped are set while a background run owns the runner,
	// including the interval between Pause and the runner returning.
	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// ErrNoRunner is returned by Start and Pause on a monitor built without
// WithRunner.
var ErrNoRunner = errors.New("monitor: no runner configured")

// Option configures a Monitor.
type Option func(*Monitor)

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(m *Monitor) { m.metrics = h }
}

// WithRunner enables /api/run and /api/pause backed by r.
func WithRunner(r *timectrl.Runner) Option {
	return func(m *Monitor) { m.runner = r }
}

// WithTimeField changes the field reported by /api/now.
func WithTimeField(name string) Option {
	return func(m *Monitor) { m.timeField = name }
}

// WithLogger sets the request logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

// New creates a monitor for sim.
func New(sim *simulation.Shared, opts ...Option) *Monitor {
	m := &Monitor{
		sim:       sim,
		log:       logging.Noop(),
		timeField: DefaultTimeField,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/fields", m.listFields).Methods(http.MethodGet)
	r.HandleFunc("/api/field/{name}", m.getField).Methods(http.MethodGet)
	r.HandleFunc("/api/field/{name}", m.setField).Methods(http.MethodPut)
	r.HandleFunc("/api/step", m.step).Methods(http.MethodPost)
	r.HandleFunc("/api/now", m.now).Methods(http.MethodGet)
	if m.runner != nil {
		r.HandleFunc("/api/run", m.run).Methods(http.MethodPost)
		r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost)
	}
	if m.metrics != nil {
		r.Handle("/metrics", m.metrics)
	}
	return r
}

// Serve runs the monitor on lis until ctx is done.
func (m *Monitor) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{Handler: m.Router()}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	m.log.Info(ctx, "monitor listening", logging.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if m.runner != nil {
		return m.Pause(context.Background())
	}
	return nil
}

type fieldInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	ValueType string `json:"value_type"`
	Writable  bool   `json:"writable"`
}

func (m *Monitor) listFields(w http.ResponseWriter, _ *http.Request) {
	var out []fieldInfo
	_ = m.sim.Do(func(sim *simulation.Simulation) error {
		for _, name := range sim.Fields() {
			f := sim.Get(name)
			out = append(out, fieldInfo{
				Name:      name,
				Type:      f.Type(),
				ValueType: f.ValueType().String(),
				Writable:  sim.GetWritable(name) != nil,
			})
		}
		return nil
	})
	writeJSON(w, http.StatusOK, out)
}

func (m *Monitor) getField(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var out any
	err := m.sim.Do(func(sim *simulation.Simulation) error {
		f, err := sim.Lookup(name)
		if err != nil {
			return err
		}
		out, err = plainValue(f.Any())
		return err
	})
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "value": out})
}

func (m *Monitor) setField(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var body struct {
		Value any `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		m.writeError(w, r, fmt.Errorf("%w: %v", simserver.ErrInvalidValue, err))
		return
	}
	wire, err := structpb.NewValue(body.Value)
	if err != nil {
		m.writeError(w, r, fmt.Errorf("%w: %v", simserver.ErrInvalidValue, err))
		return
	}

	err = m.sim.Do(func(sim *simulation.Simulation) error {
		if _, err := sim.Lookup(name); err != nil {
			return err
		}
		f := sim.GetWritable(name)
		if f == nil {
			return fmt.Errorf("%w: %q", field.ErrNotWritable, name)
		}
		v, err := simserver.DecodeValue(f.ValueType(), wire)
		if err != nil {
			return err
		}
		return f.SetAny(v)
	})
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	m.log.Info(r.Context(), "field set", logging.String("field", name))
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) step(w http.ResponseWriter, r *http.Request) {
	n := uint64(1)
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || v == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
			return
		}
		n = v
	}
	if m.active() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "simulation is running"})
		return
	}

	var steps uint64
	err := m.sim.Do(func(sim *simulation.Simulation) error {
		for i := uint64(0); i < n; i++ {
			if err := sim.StepContext(r.Context()); err != nil {
				return err
			}
		}
		steps = sim.Steps()
		return nil
	})
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"steps": steps})
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	out := map[string]any{}
	_ = m.sim.Do(func(sim *simulation.Simulation) error {
		out["steps"] = sim.Steps()
		out["run_id"] = sim.ID()
		if f := sim.Get(m.timeField); f != nil {
			if v, err := plainValue(f.Any()); err == nil {
				out["now"] = v
			}
		}
		return nil
	})
	if m.runner != nil {
		out["running"] = m.active()
	}
	writeJSON(w, http.StatusOK, out)
}

func (m *Monitor) run(w http.ResponseWriter, r *http.Request) {
	var n uint64
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be an integer"})
			return
		}
		n = v
	}

	if err := m.Start(n); err != nil {
		if errors.Is(err, timectrl.ErrRunning) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "simulation is running"})
			return
		}
		m.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Start begins a background run of n steps, or an unbounded run when n is 0.
// It returns timectrl.ErrRunning while a previous run is still stopping or
// the runner was started elsewhere.
func (m *Monitor) Start(n uint64) error {
	if m.runner == nil {
		return ErrNoRunner
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return timectrl.ErrRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	done, err := m.runner.Start(ctx, n)
	if err != nil {
		cancel()
		return err
	}
	stopped := make(chan struct{})
	m.cancel, m.stopped = cancel, stopped
	go func() {
		err := <-done
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			m.log.Warn(context.Background(), "run stopped",
				logging.Uint64("completed", m.runner.Completed()), logging.Err(err))
		}
		m.mu.Lock()
		m.cancel, m.stopped = nil, nil
		m.mu.Unlock()
		close(stopped)
	}()
	return nil
}

// Pause cancels the background run and waits for the runner to return, or
// for ctx to end. Pausing an idle monitor is a no-op.
func (m *Monitor) Pause(ctx context.Context) error {
	if m.runner == nil {
		return ErrNoRunner
	}
	m.mu.Lock()
	cancel, stopped := m.cancel, m.stopped
	m.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// active reports whether a background run owns the runner, or the runner
// is busy with a run started elsewhere.
func (m *Monitor) active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil || (m.runner != nil && m.runner.Running())
}

func (m *Monitor) pause(w http.ResponseWriter, r *http.Request) {
	if err := m.Pause(r.Context()); err != nil {
		m.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		m.log.Error(r.Context(), "monitor request failed", logging.String("path", r.URL.Path), logging.Err(err))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, state.ErrFieldNotFound):
		return http.StatusNotFound
	case errors.Is(err, simserver.ErrInvalidValue), errors.Is(err, field.ErrTypeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, field.ErrNotWritable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// plainValue converts a field value to plain JSON data. Non-finite reals
// become null.
func plainValue(v any) (any, error) {
	wire, err := simserver.EncodeValue(v)
	if err != nil {
		return nil, err
	}
	return finite(wire.AsInterface()), nil
}

func finite(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case []any:
		for i := range x {
			x[i] = finite(x[i])
		}
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
