package durable

import (
	"time"

	"github.com/flowforge/durable/duration"
	"github.com/flowforge/durable/signaling"
	"github.com/flowforge/durable/task"
	"github.com/flowforge/durable/wcontext"
)

const executionContextKey = "__durable_execution"

// Attach stores exec on ctx so any Instance sharing ctx can reach it via
// From — the same convention signaling.Attach uses for the Mailbox.
func Attach(ctx *wcontext.Context, exec *Execution) { ctx.Set(executionContextKey, exec) }

// From returns the Execution attached to inst's Context, or nil if inst
// was not started via durable.Start/durable.Recover.
func From(inst *task.Instance) *Execution {
	v, ok := inst.Context().Get(executionContextKey)
	if !ok {
		return nil
	}
	exec, _ := v.(*Execution)
	return exec
}

// Step runs fn as a durable step named name (spec §6 "durable-only:
// step"). If inst was not started durably, fn runs directly with no event
// logging.
func Step(inst *task.Instance, name string, fn func() (any, error)) (any, error) {
	exec := From(inst)
	if exec == nil {
		return fn()
	}
	return exec.Step(name, fn)
}

// Sleep waits d (anything duration.Parse accepts) as a durable sleep (spec
// §6 "durable-only: sleep"). If inst was not started durably, it simply
// sleeps for the resolved duration with no event logging.
func Sleep(inst *task.Instance, d any) error {
	resolved, err := duration.Parse(d)
	if err != nil {
		return err
	}
	exec := From(inst)
	if exec == nil {
		time.Sleep(resolved)
		return nil
	}
	return exec.Sleep(resolved)
}

// Condition is the durable override of signaling.Condition (spec §4.9
// "Durable condition"): when inst was started via durable.Start/Recover,
// the wait is logged to the event log and replayed deterministically;
// otherwise it behaves exactly like signaling.Condition.
func Condition(inst *task.Instance, predicate signaling.Predicate, timeout any) (bool, error) {
	exec := From(inst)
	d, err := resolveTimeout(timeout)
	if err != nil {
		return false, err
	}
	if exec == nil {
		return signaling.Condition(inst, predicate, timeout)
	}
	return exec.Condition(predicate, d)
}

func resolveTimeout(timeout any) (time.Duration, error) {
	if timeout == nil {
		return 0, nil
	}
	return duration.Parse(timeout)
}
