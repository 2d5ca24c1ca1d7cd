package signaling_test

import (
	"sync"
	"testing"
	"time"

	"github.com/flowforge/durable/signaling"
	"github.com/flowforge/durable/task"
	"github.com/flowforge/durable/werrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approve = signaling.DefineSignal[string]("approve")
var status = signaling.DefineQuery[string, struct{}]("status")

// TestSignalDrivenApproval encodes spec §8 S3: a workflow waits on a
// Condition that only becomes true once an external signal arrives,
// then completes using the signal's payload.
func TestSignalDrivenApproval(t *testing.T) {
	var approved bool
	var approver string

	def := task.NewDefinition("approval")
	def.Work = func(inst *task.Instance) error {
		signaling.SetHandler(inst, approve, func(by string) error {
			approved = true
			approver = by
			return nil
		})
		ok, err := signaling.Condition(inst, func() (bool, error) { return approved, nil }, nil)
		if err != nil {
			return err
		}
		if !ok {
			return inst.Fail("not approved", nil)
		}
		inst.Context().Set("approver", approver)
		return nil
	}

	h := signaling.Start(def, nil, task.Options{})

	time.Sleep(10 * time.Millisecond)
	require.False(t, h.Completed())

	require.NoError(t, signaling.SendSignal(h, approve, "alice"))

	result := h.Result()
	require.True(t, result.Success())
	v, _ := result.Context().Get("approver")
	assert.Equal(t, "alice", v)
}

// TestConditionTimeout encodes spec §8 S4: a Condition that never becomes
// true resolves false once its timeout elapses rather than blocking
// forever (P8).
func TestConditionTimeout(t *testing.T) {
	def := task.NewDefinition("times-out")
	def.Work = func(inst *task.Instance) error {
		ok, err := signaling.Condition(inst, func() (bool, error) { return false, nil }, 20*time.Millisecond)
		if err != nil {
			return err
		}
		if !ok {
			return inst.Fail("timed out", nil)
		}
		return nil
	}

	h := signaling.Start(def, nil, task.Options{})
	result := h.Result()

	require.True(t, result.Failed())
	reason, _ := result.Reason()
	assert.Equal(t, "timed out", reason)
}

// TestSignalBufferedBeforeHandlerRegistration encodes spec §8 S5 / P6: a
// signal sent before the workflow registers its handler is buffered and
// delivered, in order, as soon as SetHandler runs.
func TestSignalBufferedBeforeHandlerRegistration(t *testing.T) {
	var mu sync.Mutex
	var received []string

	def := task.NewDefinition("buffered")
	def.Work = func(inst *task.Instance) error {
		time.Sleep(15 * time.Millisecond) // give the early signal time to arrive first
		signaling.SetHandler(inst, approve, func(by string) error {
			mu.Lock()
			received = append(received, by)
			mu.Unlock()
			return nil
		})
		time.Sleep(5 * time.Millisecond)
		return nil
	}

	h := signaling.Start(def, nil, task.Options{})
	require.NoError(t, signaling.SendSignal(h, approve, "early-bird"))

	h.Result()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "early-bird", received[0])
}

// TestQueryServedWhileRunning encodes the read side of C9: queries are
// answered synchronously against live workflow state.
func TestQueryServedWhileRunning(t *testing.T) {
	def := task.NewDefinition("queryable")
	def.Work = func(inst *task.Instance) error {
		signaling.SetQueryHandler(inst, status, func(struct{}) (string, error) {
			return "running", nil
		})
		time.Sleep(20 * time.Millisecond)
		return nil
	}

	h := signaling.Start(def, nil, task.Options{})
	time.Sleep(5 * time.Millisecond)

	v, err := signaling.SendQuery(h, status, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "running", v)

	h.Result()
}

// TestSignalAfterCompletionIsRejected encodes spec §4.8: once a workflow
// completes, further signals are rejected.
func TestSignalAfterCompletionIsRejected(t *testing.T) {
	def := task.NewDefinition("quick")
	def.Work = func(inst *task.Instance) error { return nil }

	h := signaling.Start(def, nil, task.Options{})
	h.Result()

	err := signaling.SendSignal(h, approve, "too-late")
	assert.ErrorIs(t, err, werrors.ErrSignalAfterCompletion)
}
