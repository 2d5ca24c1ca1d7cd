package durable_test

import (
	"context"
	"testing"
	"time"

	"github.com/flowforge/durable/durable"
	"github.com/flowforge/durable/signaling"
	"github.com/flowforge/durable/store"
	"github.com/flowforge/durable/store/memstore"
	"github.com/flowforge/durable/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approve = signaling.DefineSignal[string]("approve")

// TestDurableStepReplaySkipsSideEffects encodes spec §8 S6: a live run's
// event log has the expected shape, and recovering a workflow that
// crashed after completing step A does not re-run A's side effect while
// still running B live.
func TestDurableStepReplaySkipsSideEffects(t *testing.T) {
	st := memstore.New()
	var aRuns, bRuns int

	def := task.NewDefinition("two-steps")
	def.Work = func(inst *task.Instance) error {
		_, err := durable.Step(inst, "A", func() (any, error) { aRuns++; return 1, nil })
		if err != nil {
			return err
		}
		_, err = durable.Step(inst, "B", func() (any, error) { bRuns++; return 2, nil })
		return err
	}

	ctx := context.Background()
	h, err := durable.Start(ctx, st, "wf-1", "two-steps", def, nil)
	require.NoError(t, err)
	result := h.Result()
	require.True(t, result.Success())
	assert.Equal(t, 1, aRuns)
	assert.Equal(t, 1, bRuns)

	events, err := st.GetEvents(ctx, "wf-1", -1)
	require.NoError(t, err)
	var types []store.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []store.EventType{
		store.EventWorkflowStarted,
		store.EventStepScheduled, store.EventStepCompleted,
		store.EventStepScheduled, store.EventStepCompleted,
		store.EventWorkflowCompleted,
	}, types)

	// Simulate a process that crashed right after step A completed: seed a
	// fresh workflow's log with only the first three events.
	crashed := st2Seed(t, st, "wf-1-crashed")
	require.NoError(t, crashed)

	aRunsBefore, bRunsBefore := aRuns, bRuns
	recovered, err := durable.Recover(ctx, st, "wf-1-crashed", "two-steps", def, nil)
	require.NoError(t, err)
	recResult := recovered.Result()
	require.True(t, recResult.Success())

	assert.Equal(t, aRunsBefore, aRuns, "step A must not re-run on replay")
	assert.Equal(t, bRunsBefore+1, bRuns, "step B runs live since it never completed before the crash")

	eventsAfter, err := st.GetEvents(ctx, "wf-1-crashed", -1)
	require.NoError(t, err)
	scheduledA := 0
	for _, e := range eventsAfter {
		if e.Type == store.EventStepScheduled && e.Payload["step"] == "A" {
			scheduledA++
		}
	}
	assert.Equal(t, 1, scheduledA, "step A's schedule is not re-appended on replay")
}

func st2Seed(t *testing.T, st *memstore.Store, workflowID string) error {
	t.Helper()
	ctx := context.Background()
	if err := st.AppendEvent(ctx, workflowID, store.Event{Type: store.EventWorkflowStarted, Sequence: 1, Payload: map[string]any{"workflowType": "two-steps"}}); err != nil {
		return err
	}
	if err := st.AppendEvent(ctx, workflowID, store.Event{Type: store.EventStepScheduled, Sequence: 2, Payload: map[string]any{"step": "A"}}); err != nil {
		return err
	}
	return st.AppendEvent(ctx, workflowID, store.Event{Type: store.EventStepCompleted, Sequence: 3, Payload: map[string]any{"step": "A", "result": float64(1)}})
}

// TestDurableStepAtMostOnceCompletion encodes P10: a step name never
// appends more than one step.completed event, even across recovery.
func TestDurableStepAtMostOnceCompletion(t *testing.T) {
	st := memstore.New()
	def := task.NewDefinition("one-step")
	def.Work = func(inst *task.Instance) error {
		_, err := durable.Step(inst, "only", func() (any, error) { return "done", nil })
		return err
	}

	ctx := context.Background()
	h, err := durable.Start(ctx, st, "wf-2", "one-step", def, nil)
	require.NoError(t, err)
	require.True(t, h.Result().Success())

	events, err := st.GetEvents(ctx, "wf-2", -1)
	require.NoError(t, err)
	completions := 0
	for _, e := range events {
		if e.Type == store.EventStepCompleted {
			completions++
		}
	}
	assert.Equal(t, 1, completions)
}

// TestDurableConditionSignalDriven exercises a durable workflow awaiting a
// signal-satisfied condition, logging condition.scheduled/satisfied and
// completing once the external signal arrives.
func TestDurableConditionSignalDriven(t *testing.T) {
	st := memstore.New()
	var approved bool

	def := task.NewDefinition("durable-approval")
	def.Work = func(inst *task.Instance) error {
		signaling.SetHandler(inst, approve, func(string) error { approved = true; return nil })
		ok, err := durable.Condition(inst, func() (bool, error) { return approved, nil }, nil)
		if err != nil {
			return err
		}
		if !ok {
			return inst.Fail("not approved", nil)
		}
		return nil
	}

	ctx := context.Background()
	h, err := durable.Start(ctx, st, "wf-3", "durable-approval", def, nil)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, durable.SendSignal(h, approve, "alice"))

	require.True(t, h.Result().Success())

	events, err := st.GetEvents(ctx, "wf-3", -1)
	require.NoError(t, err)
	var sawScheduled, sawSatisfied bool
	for _, e := range events {
		if e.Type == store.EventConditionSched {
			sawScheduled = true
		}
		if e.Type == store.EventConditionSatisfy {
			sawSatisfied = true
		}
	}
	assert.True(t, sawScheduled)
	assert.True(t, sawSatisfied)
}
