// Package backend abstracts an alternate durable-execution backend that a
// workflow can target instead of this module's own store+Execution engine
// (SPEC_FULL.md §12.4). The default path (durable.Start/Recover against a
// store.WorkflowStore) needs no Engine at all; this interface exists for
// operators who already run a Temporal cluster and want this module's
// Definition/Step/Condition/Sleep surface to compile down onto it instead,
// grounded on the teacher's runtime/agent/engine package.
package backend

import (
	"context"
	"time"
)

// Engine registers and starts workflows on a durable-execution backend.
// Implementations translate these generic types into backend-specific
// primitives (e.g. backend/temporal maps them onto the Temporal Go SDK).
type Engine interface {
	// RegisterWorkflow registers def with the engine before any worker
	// starts picking up work for it.
	RegisterWorkflow(ctx context.Context, def WorkflowDefinition) error

	// StartWorkflow begins a new execution and returns a handle for
	// interacting with it.
	StartWorkflow(ctx context.Context, req WorkflowStartRequest) (WorkflowHandle, error)
}

// WorkflowDefinition binds a workflow handler to a logical name and queue.
type WorkflowDefinition struct {
	Name      string
	TaskQueue string
	Handler   WorkflowFunc
}

// WorkflowFunc is the entry point the engine invokes inside its own
// deterministic execution environment. Implementations must keep it
// side-effect free outside of the durable.Step/Condition/Sleep primitives
// the engine-specific WorkflowContext exposes.
type WorkflowFunc func(ctx WorkflowContext, args map[string]any) (any, error)

// WorkflowContext exposes the engine's primitives to a WorkflowFunc: the
// same step/condition/sleep/signal shape spec §4.9 describes for this
// module's own durable package, here delegated to whatever backend Engine
// is in play.
type WorkflowContext interface {
	Context() context.Context
	WorkflowID() string

	// Step runs fn exactly once across the workflow's lifetime, replaying
	// its recorded result instead of re-invoking fn on recovery (the
	// backend's own durable-execution guarantee takes the place of this
	// module's event log).
	Step(name string, fn func(ctx context.Context) (any, error)) (any, error)

	// Sleep durably waits d.
	Sleep(d time.Duration) error

	// Condition durably waits until predicate returns true or timeout
	// elapses (timeout <= 0 means wait indefinitely).
	Condition(predicate func() (bool, error), timeout time.Duration) (bool, error)

	// Signal returns a channel-like receiver for signals named name sent
	// to this workflow.
	Signal(name string) SignalReceiver
}

// SignalReceiver receives signals delivered to a running workflow.
type SignalReceiver interface {
	Receive(ctx context.Context, dest any) error
	ReceiveAsync(dest any) bool
}

// WorkflowStartRequest describes how to launch a workflow execution.
type WorkflowStartRequest struct {
	ID        string
	Workflow  string
	TaskQueue string
	Args      map[string]any
}

// WorkflowHandle lets callers interact with a running workflow.
type WorkflowHandle interface {
	Wait(ctx context.Context, result any) error
	Signal(ctx context.Context, name string, payload any) error
	Cancel(ctx context.Context) error
}
