// Package timectrl paces simulation steps against the wall clock.
package timectrl

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Stepper is anything that can take one discrete step.
// simulation.Simulation and simulation.Shared both qualify.
type Stepper interface {
	StepContext(ctx context.Context) error
}

// Mode describes how the Runner paces steps.
type Mode int

const (
	// RealTime waits one Tick of wall-clock time before every step.
	RealTime Mode = iota
	// Accelerated steps as quickly as the loop can run.
	Accelerated
)

// String returns the lower-case mode name.
func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name back into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "realtime", "real-time", "":
		return RealTime, nil
	case "accelerated", "fast":
		return Accelerated, nil
	default:
		return 0, errors.New("unknown time mode " + s)
	}
}

// ErrRunning is returned by Run when the Runner is already running.
var ErrRunning = errors.New("timectrl: runner already running")

// Listener is invoked after every successful step with the number of
// completed steps.
type Listener func(step uint64)

// Runner drives a Stepper and notifies registered listeners.
type Runner struct {
	Tick time.Duration
	Mode Mode

	target Stepper

	mu        sync.RWMutex
	completed uint64
	running   bool
	listeners []Listener
}

// NewRunner constructs a runner for target. tick is the wall-clock pacing
// interval in RealTime mode.
func NewRunner(target Stepper, tick time.Duration, mode Mode) *Runner {
	return &Runner{
		Tick:   tick,
		Mode:   mode,
		target: target,
	}
}

// Completed returns the number of steps taken so far.
func (r *Runner) Completed() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.completed
}

// Running reports whether Run is in progress.
func (r *Runner) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// AddListener registers a callback invoked after every step.
func (r *Runner) AddListener(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Run takes n steps, or steps until ctx is done when n is 0. It returns the
// first step error, or ctx.Err() when the context ends an unbounded run.
func (r *Runner) Run(ctx context.Context, n uint64) error {
	if err := r.claim(); err != nil {
		return err
	}
	defer r.release()
	return r.loop(ctx, n)
}

// Start claims the runner and runs it in a separate goroutine. It returns
// ErrRunning without starting anything when a run is already in progress.
// The returned channel yields the run's result after Running reports false,
// and is then closed.
func (r *Runner) Start(ctx context.Context, n uint64) (<-chan error, error) {
	if err := r.claim(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := r.loop(ctx, n)
		r.release()
		done <- err
	}()
	return done, nil
}

func (r *Runner) claim() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunning
	}
	r.running = true
	return nil
}

func (r *Runner) release() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Runner) loop(ctx context.Context, n uint64) error {
	var tick <-chan time.Time
	if r.Mode == RealTime && r.Tick > 0 {
		ticker := time.NewTicker(r.Tick)
		defer ticker.Stop()
		tick = ticker.C
	}

	for i := uint64(0); n == 0 || i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		if err := r.target.StepContext(ctx); err != nil {
			return err
		}

		r.mu.Lock()
		r.completed++
		step := r.completed
		listeners := append([]Listener(nil), r.listeners...)
		r.mu.Unlock()

		for _, fn := range listeners {
			fn(step)
		}
	}
	return nil
}
