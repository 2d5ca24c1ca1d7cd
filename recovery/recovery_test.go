package recovery_test

import (
	"context"
	"testing"

	"github.com/flowforge/durable/durable"
	"github.com/flowforge/durable/recovery"
	"github.com/flowforge/durable/store"
	"github.com/flowforge/durable/store/memstore"
	"github.com/flowforge/durable/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecoverAllResumesActiveWorkflows encodes P11 "recovery fidelity": a
// workflow left active by a simulated crash is resumed by RecoverAll and
// runs its un-replayed steps live, while a completed workflow is excluded.
func TestRecoverAllResumesActiveWorkflows(t *testing.T) {
	st := memstore.New()
	var ranLive bool

	def := task.NewDefinition("recoverable")
	def.Work = func(inst *task.Instance) error {
		_, err := durable.Step(inst, "only", func() (any, error) { ranLive = true; return "ok", nil })
		return err
	}

	reg := recovery.NewRegistry()
	reg.Register("recoverable", def)

	ctx := context.Background()
	require.NoError(t, st.AppendEvent(ctx, "crashed-1", store.Event{
		Type: store.EventWorkflowStarted, Sequence: 1,
		Payload: map[string]any{"workflowType": "recoverable", "args": map[string]any{}},
	}))

	// A second workflow that already completed must not be picked up.
	completedHandle, err := durable.Start(ctx, st, "done-1", "recoverable", def, nil)
	require.NoError(t, err)
	require.True(t, completedHandle.Result().Success())
	ranLive = false // reset after the warm-up run above

	coord := recovery.New(st, reg, nil)
	handles, err := coord.RecoverAll(ctx)
	require.NoError(t, err)
	require.Len(t, handles, 1)
	assert.Equal(t, "crashed-1", handles[0].WorkflowID)

	require.True(t, handles[0].Result().Success())
	assert.True(t, ranLive)
}

// TestRecoverAllSkipsUnknownWorkflowType encodes spec §4.12's requirement
// that an unregistered workflow type is skipped with a warning, not
// removed from the active set.
func TestRecoverAllSkipsUnknownWorkflowType(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.AppendEvent(ctx, "mystery-1", store.Event{
		Type: store.EventWorkflowStarted, Sequence: 1,
		Payload: map[string]any{"workflowType": "unregistered-type", "args": map[string]any{}},
	}))

	reg := recovery.NewRegistry()
	coord := recovery.New(st, reg, nil)

	handles, err := coord.RecoverAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, handles)

	active, err := st.ListActiveWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "mystery-1", active[0].WorkflowID)
}
