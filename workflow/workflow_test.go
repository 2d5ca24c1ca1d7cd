package workflow_test

import (
	"testing"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/task"
	"github.com/flowforge/durable/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() *task.Definition {
	d := task.NewDefinition("noop")
	d.Work = func(inst *task.Instance) error { return nil }
	return d
}

// TestSequentialPipelineBreakpoint encodes spec §8 S1: tasks [A,B,C] where B
// fails; C never runs and the failure propagates with reason/metadata
// intact.
func TestSequentialPipelineBreakpoint(t *testing.T) {
	var ranC bool

	a := noop()
	b := task.NewDefinition("B")
	b.Work = func(inst *task.Instance) error { return inst.Fail("boom", map[string]any{"code": "X"}) }
	c := task.NewDefinition("C")
	c.Work = func(inst *task.Instance) error { ranC = true; return nil }

	wf := workflow.NewDefinition("pipeline")
	wf.Tasks = []workflow.ListEntry{{Task: a}, {Task: b}, {Task: c}}

	result := task.Execute(wf.Definition, nil, task.Options{})

	require.True(t, result.Failed())
	reason, _ := result.Reason()
	assert.Equal(t, "boom", reason)
	assert.Equal(t, "X", result.Metadata()["code"])
	assert.False(t, ranC)
	assert.Equal(t, 3, result.Chain().Size()) // A, B, workflow
}

// TestParallelGroupIsolatesContext encodes spec §8 S2: a parallel group's
// children never leak Context writes into the parent.
func TestParallelGroupIsolatesContext(t *testing.T) {
	a := task.NewDefinition("A")
	a.Work = func(inst *task.Instance) error {
		inst.Context().Set("step", 1)
		return nil
	}
	b := task.NewDefinition("B")
	b.Work = func(inst *task.Instance) error {
		inst.Context().Set("step", 2)
		return nil
	}
	c := task.NewDefinition("C")
	c.Work = func(inst *task.Instance) error {
		inst.Context().Set("step", 3)
		return nil
	}

	wf := workflow.NewDefinition("fanout")
	wf.Tasks = []workflow.ListEntry{
		{Task: a},
		{Group: &workflow.Group{Strategy: workflow.Parallel, Entries: []workflow.ListEntry{{Task: b}, {Task: c}}}},
	}

	result := task.Execute(wf.Definition, nil, task.Options{})

	require.True(t, result.Success())
	step, ok := result.Context().Get("step")
	require.True(t, ok)
	assert.Equal(t, 1, step)
}

func TestEntryGatedOffByIfIsSkipped(t *testing.T) {
	var ran bool
	gated := task.NewDefinition("gated")
	gated.Work = func(inst *task.Instance) error { ran = true; return nil }

	wf := workflow.NewDefinition("conditional")
	wf.Tasks = []workflow.ListEntry{
		{Task: gated, IfFunc: func(inst *task.Instance) (bool, error) { return false, nil }},
	}

	result := task.Execute(wf.Definition, nil, task.Options{})

	require.True(t, result.Success())
	assert.False(t, ran)
}

func TestBreakpointPropagationSetsCausedFailure(t *testing.T) {
	b := task.NewDefinition("B")
	b.Work = func(inst *task.Instance) error { return inst.Fail("boom", nil) }

	wf := workflow.NewDefinition("pipeline")
	wf.Tasks = []workflow.ListEntry{{Task: b}}

	result := task.Execute(wf.Definition, nil, task.Options{})

	require.True(t, result.Failed())
	require.NotNil(t, result.CausedFailure())
	assert.Equal(t, chain.StatusFailed, result.CausedFailure().Status())
}
