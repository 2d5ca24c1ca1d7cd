// Package config exposes the process-wide configuration surface of spec §6
// ("configure(fn) function passing a mutable configuration bag"), grounded
// on the teacher's functional-options pattern (runtime.go's RunOption,
// WithRunID, etc.): one Configure call mutating a shared Bag under a mutex,
// idempotent across repeated calls, plus a YAML loader for operators who'd
// rather not recompile to flip a breakpoint or rollback default.
package config

import (
	"sync"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/task"
	"github.com/flowforge/durable/telemetry"
	"github.com/flowforge/durable/workflow"
)

// Bag is the mutable configuration object passed to Configure's fn (spec
// §6: "{taskBreakpoints, workflowBreakpoints, rollbackOn, backtrace,
// backtraceCleaner, exceptionHandler, logger, middlewares, callbacks,
// coercions, validators}").
type Bag struct {
	// TaskBreakpoints and WorkflowBreakpoints are the process-wide
	// defaults consulted when a Definition sets none of its own.
	TaskBreakpoints     []chain.Status
	WorkflowBreakpoints []chain.Status

	// RollbackOn is the process-wide default rollback trigger set.
	RollbackOn []chain.Status

	// Backtrace enables stack-trace capture for unexpected exceptions
	// (spec §7 item 3). BacktraceCleaner, if set, filters/rewrites the
	// captured frames before ExceptionHandler sees them — the same role
	// Rails' backtrace cleaners and Sentry's stack frame filters play.
	Backtrace        bool
	BacktraceCleaner func(frames []string) []string

	// ExceptionHandler is invoked for every unexpected-exception failure
	// (err, cleaned backtrace), as a reporting side effect; it never
	// changes the task's Result.
	ExceptionHandler func(err error, backtrace []string)

	// Logger is a process-wide telemetry.Logger kept on the Bag and
	// readable through Current. apply does not hand it to any engine
	// component.
	Logger telemetry.Logger

	// Middlewares/Callbacks/Coercions/Validators register directly into
	// the corresponding task package registries; Bag exposes them here so
	// a single Configure call can set up all of them at once, matching
	// spec §6's "process-wide registries... updated via configure() at
	// startup".
	Middlewares map[string]task.Middleware
	Callbacks   []BagCallback
	Coercions   map[string]task.Coercion
	Validators  map[string]task.ValidatorFunc
}

// BagCallback pairs a lifecycle CallbackType with the Callback to register
// globally for it (spec §4.4 step 9's "globally registered callbacks").
type BagCallback struct {
	Type     task.CallbackType
	Callback task.Callback
}

var (
	mu      sync.Mutex
	current Bag
)

// Configure applies fn to the shared process-wide Bag and propagates every
// field except Logger into the engine's registries and defaults (spec §6).
// Safe to call more than once: fn mutates the same Bag each time, and apply
// clears the middleware registry and the global-callback table and
// re-registers them from the whole Bag, so nothing is registered twice.
// Coercions and validators are registered by name on top of whatever the
// registries already hold.
func Configure(fn func(*Bag)) {
	mu.Lock()
	defer mu.Unlock()

	fn(&current)
	apply(&current)
}

// Current returns a copy of the Bag as last configured, for callers that
// need to inspect rather than mutate it (e.g. the YAML loader reporting
// what it applied).
func Current() Bag {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// apply re-derives engine state from b in full each call, rather than
// appending deltas, so repeated Configure calls over a growing Bag stay
// idempotent instead of re-registering the same global callback twice
// (task.RegisterGlobalCallback appends; it has no reason to deduplicate a
// registration the caller only ever means to apply once).
func apply(b *Bag) {
	task.DefaultTaskBreakpoints = b.TaskBreakpoints
	task.DefaultRollbackOn = b.RollbackOn
	workflow.DefaultWorkflowBreakpoints = b.WorkflowBreakpoints

	task.SetExceptionHooks(b.Backtrace, b.BacktraceCleaner, b.ExceptionHandler)

	task.Middlewares.Clear()
	for name, mw := range b.Middlewares {
		task.Middlewares.Register(name, mw)
	}

	task.ClearGlobalCallbacks()
	for _, cb := range b.Callbacks {
		task.RegisterGlobalCallback(cb.Type, cb.Callback)
	}

	for name, c := range b.Coercions {
		task.Coercions.Register(name, c)
	}
	for name, v := range b.Validators {
		task.Validators.Register(name, v)
	}
}
