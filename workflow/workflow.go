// Package workflow implements the Workflow composer (spec §2 C6, §4.5): a
// Task whose default work body walks a static list of child tasks,
// sequentially or in parallel groups, propagating breakpoint-matching child
// statuses onto itself.
package workflow

import (
	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/task"
	"github.com/flowforge/durable/werrors"
)

// Strategy selects how a Group's entries run (spec §4.5).
type Strategy string

const (
	Sequential Strategy = "sequential"
	Parallel   Strategy = "parallel"
)

// ListEntry is one element of a workflow's static task list (spec §4.5):
// either a single task entry or a Group, each optionally gated by
// If/Unless and carrying its own breakpoint override.
type ListEntry struct {
	Task  *task.Definition
	Group *Group

	If     string
	IfFunc task.PredicateFunc

	Unless     string
	UnlessFunc task.PredicateFunc

	// Breakpoints overrides the enclosing workflow's effective breakpoints
	// for this entry only; nil means "use the enclosing default".
	Breakpoints []chain.Status
}

// Group runs its Entries under Strategy (default Sequential).
type Group struct {
	Entries  []ListEntry
	Strategy Strategy

	If     string
	IfFunc task.PredicateFunc

	Unless     string
	UnlessFunc task.PredicateFunc

	Breakpoints []chain.Status
}

// Definition is a Workflow: a *task.Definition whose Work is the composer's
// runTasks loop over Tasks (spec §4.5: "A workflow is a Task whose default
// work walks its static tasks list").
type Definition struct {
	*task.Definition

	Tasks []ListEntry

	// WorkflowBreakpoints is the default effective breakpoint set for the
	// top-level list and any Group/entry that does not override it (spec
	// §4.5: "Breakpoints default to settings.workflowBreakpoints or
	// ['failed']").
	WorkflowBreakpoints []chain.Status
}

// NewDefinition returns a Workflow Definition named name, wired so
// executing it runs its Tasks list.
func NewDefinition(name string) *Definition {
	d := &Definition{Definition: task.NewDefinition(name)}
	d.Definition.Work = d.runTasks
	return d
}

// DefaultWorkflowBreakpoints is the process-wide fallback consulted when a
// Definition sets no WorkflowBreakpoints of its own (spec §6 configuration
// bag's workflowBreakpoints). Set via config.Configure.
var DefaultWorkflowBreakpoints []chain.Status

func (d *Definition) effectiveBreakpoints(override []chain.Status) []chain.Status {
	if len(override) > 0 {
		return override
	}
	if len(d.WorkflowBreakpoints) > 0 {
		return d.WorkflowBreakpoints
	}
	if len(DefaultWorkflowBreakpoints) > 0 {
		return DefaultWorkflowBreakpoints
	}
	return []chain.Status{chain.StatusFailed}
}

func (d *Definition) runTasks(inst *task.Instance) error {
	halted, err := runSequential(inst, d.Tasks, d.effectiveBreakpoints(nil))
	if err != nil {
		return err
	}
	if halted != nil {
		return werrors.PropagateFault(halted, halted.Metadata())
	}
	return nil
}
