// Package storetest is a shared conformance suite exercised against every
// store.WorkflowStore implementation (memstore, redisstore, mongostore),
// grounded on the teacher's pattern of one behavioral contract test shared
// across interchangeable backends (see runtime/agents/memory's Store
// interface and its inmem/mongo implementations).
package storetest

import (
	"context"
	"testing"

	"github.com/flowforge/durable/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Conformance runs the WorkflowStore contract against a fresh store
// returned by newStore for each subtest.
func Conformance(t *testing.T, newStore func() store.WorkflowStore) {
	t.Run("AppendEventEnforcesSequenceUniqueness", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()
		wf := "wf-1"
		require.NoError(t, s.AppendEvent(ctx, wf, store.Event{Type: store.EventWorkflowStarted, Sequence: 0, Payload: map[string]any{"workflowType": "demo"}}))
		err := s.AppendEvent(ctx, wf, store.Event{Type: store.EventStepScheduled, Sequence: 0, Payload: map[string]any{}})
		assert.ErrorIs(t, err, store.ErrSequenceConflict)
	})

	t.Run("GetEventsOrderedBySequenceAscending", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()
		wf := "wf-2"
		require.NoError(t, s.AppendEvent(ctx, wf, store.Event{Type: store.EventWorkflowStarted, Sequence: 0}))
		require.NoError(t, s.AppendEvent(ctx, wf, store.Event{Type: store.EventStepScheduled, Sequence: 1}))
		require.NoError(t, s.AppendEvent(ctx, wf, store.Event{Type: store.EventStepCompleted, Sequence: 2}))

		events, err := s.GetEvents(ctx, wf, 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, int64(1), events[0].Sequence)
		assert.Equal(t, int64(2), events[1].Sequence)
	})

	t.Run("CheckpointRoundTripsLatest", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()
		wf := "wf-3"
		require.NoError(t, s.AppendEvent(ctx, wf, store.Event{Type: store.EventWorkflowStarted, Sequence: 0}))

		require.NoError(t, s.SaveCheckpoint(ctx, store.Checkpoint{WorkflowID: wf, Sequence: 0, Status: store.CheckpointRunning}))
		require.NoError(t, s.SaveCheckpoint(ctx, store.Checkpoint{WorkflowID: wf, Sequence: 1, Status: store.CheckpointRunning}))

		cp, err := s.GetLatestCheckpoint(ctx, wf)
		require.NoError(t, err)
		require.NotNil(t, cp)
		assert.Equal(t, int64(1), cp.Sequence)
	})

	t.Run("ListActiveWorkflowsExcludesCompleted", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()
		require.NoError(t, s.AppendEvent(ctx, "wf-active", store.Event{Type: store.EventWorkflowStarted, Sequence: 0, Payload: map[string]any{"workflowType": "demo"}}))
		require.NoError(t, s.AppendEvent(ctx, "wf-done", store.Event{Type: store.EventWorkflowStarted, Sequence: 0, Payload: map[string]any{"workflowType": "demo"}}))
		require.NoError(t, s.MarkCompleted(ctx, "wf-done"))

		active, err := s.ListActiveWorkflows(ctx)
		require.NoError(t, err)
		ids := make(map[string]bool)
		for _, a := range active {
			ids[a.WorkflowID] = true
		}
		assert.True(t, ids["wf-active"])
		assert.False(t, ids["wf-done"])
	})
}
