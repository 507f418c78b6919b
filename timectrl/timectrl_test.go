package timectrl

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingStepper struct {
	n      atomic.Uint64
	failAt uint64
}

func (c *countingStepper) StepContext(context.Context) error {
	v := c.n.Add(1)
	if c.failAt != 0 && v == c.failAt {
		return errors.New("step failed")
	}
	return nil
}

func TestRunnerAcceleratedRunsNSteps(t *testing.T) {
	s := &countingStepper{}
	r := NewRunner(s, time.Hour, Accelerated)

	var seen []uint64
	r.AddListener(func(step uint64) { seen = append(seen, step) })

	if err := r.Run(context.Background(), 5); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := s.n.Load(); got != 5 {
		t.Fatalf("stepper called %d times, want 5", got)
	}
	if r.Completed() != 5 {
		t.Fatalf("Completed() = %d, want 5", r.Completed())
	}
	if len(seen) != 5 || seen[0] != 1 || seen[4] != 5 {
		t.Fatalf("listener saw %v", seen)
	}
}

func TestRunnerRealTimeStartUpdatesCompleted(t *testing.T) {
	s := &countingStepper{}
	r := NewRunner(s, 5*time.Millisecond, RealTime)

	start := time.Now()
	done, err := r.Start(context.Background(), 3)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("real-time run finished after %v, want at least 15ms", elapsed)
	}
	if r.Completed() != 3 {
		t.Fatalf("Completed() = %d, want 3", r.Completed())
	}
}

func TestRunnerStopsOnStepError(t *testing.T) {
	s := &countingStepper{failAt: 2}
	r := NewRunner(s, 0, Accelerated)

	if err := r.Run(context.Background(), 10); err == nil {
		t.Fatalf("expected step error")
	}
	if r.Completed() != 1 {
		t.Fatalf("Completed() = %d, want 1", r.Completed())
	}
}

func TestRunnerUnboundedUntilCancel(t *testing.T) {
	s := &countingStepper{}
	r := NewRunner(s, time.Millisecond, RealTime)
	ctx, cancel := context.WithCancel(context.Background())

	r.AddListener(func(step uint64) {
		if step == 4 {
			cancel()
		}
	})
	err := r.Run(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if r.Completed() != 4 {
		t.Fatalf("Completed() = %d, want 4", r.Completed())
	}
	if r.Running() {
		t.Fatalf("runner still marked running")
	}
}

func TestRunnerStartRefusesWhileRunning(t *testing.T) {
	s := &countingStepper{}
	r := NewRunner(s, time.Millisecond, RealTime)
	ctx, cancel := context.WithCancel(context.Background())

	done, err := r.Start(ctx, 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !r.Running() {
		t.Fatalf("Running() = false right after Start")
	}
	if again, err := r.Start(ctx, 1); !errors.Is(err, ErrRunning) || again != nil {
		t.Fatalf("second Start = %v, %v, want nil, ErrRunning", again, err)
	}
	if err := r.Run(ctx, 1); !errors.Is(err, ErrRunning) {
		t.Fatalf("Run during Start = %v, want ErrRunning", err)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("run result = %v, want context.Canceled", err)
	}
	if r.Running() {
		t.Fatalf("runner still marked running after its result was delivered")
	}
	if _, ok := <-done; ok {
		t.Fatalf("done channel not closed")
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{RealTime, Accelerated} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("warp"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
