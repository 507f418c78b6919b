package simulation

import "context"

// HookPos names a point in the simulation lifecycle at which hooks run.
type HookPos struct {
	Name string
}

var (
	// HookPosReady triggers once, after wiring completes.
	HookPosReady = &HookPos{Name: "Ready"}
	// HookPosBeforeStep triggers before the root model steps.
	HookPosBeforeStep = &HookPos{Name: "BeforeStep"}
	// HookPosAfterStep triggers after a successful step.
	HookPosAfterStep = &HookPos{Name: "AfterStep"}
)

// HookCtx describes the site at which a hook is invoked.
type HookCtx struct {
	Context context.Context
	Sim     *Simulation
	Pos     *HookPos
	// Step is the number of completed steps at the time of the call.
	Step uint64
}

// Hook observes a simulation. Hooks run synchronously on the stepping
// goroutine and may read any field.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx HookCtx)

func (f HookFunc) Func(ctx HookCtx) { f(ctx) }

type hookableBase struct {
	hooks []Hook
}

// AcceptHook registers a hook.
func (h *hookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

func (h *hookableBase) invokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
