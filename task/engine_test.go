package task_test

import (
	"errors"
	"testing"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSuccess(t *testing.T) {
	def := task.NewDefinition("greet")
	def.Attributes = []*task.AttributeDef{
		{Name: "name", Required: true, Types: []string{"string"}},
	}
	def.Work = func(inst *task.Instance) error {
		name, _ := inst.Attr("name")
		inst.Context().Set("greeting", "hello "+name.(string))
		return nil
	}

	result := task.Execute(def, map[string]any{"name": "ada"}, task.Options{})

	require.True(t, result.Success())
	greeting, ok := result.Context().Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello ada", greeting)
}

func TestExecuteRequiredAttributeMissingIsInvalid(t *testing.T) {
	def := task.NewDefinition("greet")
	def.Attributes = []*task.AttributeDef{
		{Name: "name", Required: true, Types: []string{"string"}},
	}
	def.Work = func(inst *task.Instance) error { return nil }

	result := task.Execute(def, map[string]any{}, task.Options{})

	require.True(t, result.Failed())
	reason, _ := result.Reason()
	assert.Equal(t, "Invalid", reason)
	md := result.Metadata()
	errsField, ok := md["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errsField["fullMessage"], "name")
}

func TestExecuteSkip(t *testing.T) {
	def := task.NewDefinition("maybe")
	def.Work = func(inst *task.Instance) error {
		return inst.Skip("not needed", map[string]any{"code": "X"})
	}

	result := task.Execute(def, nil, task.Options{})

	require.True(t, result.Skipped())
	reason, _ := result.Reason()
	assert.Equal(t, "not needed", reason)
	assert.Equal(t, "X", result.Metadata()["code"])
}

func TestExecuteFailSetsUnexpectedExceptionReason(t *testing.T) {
	def := task.NewDefinition("boom")
	def.Work = func(inst *task.Instance) error {
		return errors.New("kaboom")
	}

	result := task.Execute(def, nil, task.Options{})

	require.True(t, result.Failed())
	reason, _ := result.Reason()
	assert.Contains(t, reason, "kaboom")
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	def := task.NewDefinition("flaky")
	def.Settings.Retries = 2
	def.Work = func(inst *task.Instance) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}

	result := task.Execute(def, nil, task.Options{})

	require.True(t, result.Success())
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, result.Retries())
}

func TestExecuteRollbackRunsOnFailure(t *testing.T) {
	rolledBack := false
	def := task.NewDefinition("needs-rollback")
	def.Work = func(inst *task.Instance) error { return inst.Fail("nope", nil) }
	def.Rollback = func(inst *task.Instance) error {
		rolledBack = true
		return nil
	}

	result := task.Execute(def, nil, task.Options{})

	require.True(t, result.Failed())
	assert.True(t, rolledBack)
	assert.True(t, result.RolledBack())
}

func TestExecuteStrictReturnsFaultWhenBreakpointMatches(t *testing.T) {
	def := task.NewDefinition("strict")
	def.Settings.TaskBreakpoints = []chain.Status{chain.StatusFailed}
	def.Work = func(inst *task.Instance) error { return inst.Fail("bad", nil) }

	_, err := task.ExecuteStrict(def, nil, task.Options{})
	require.Error(t, err)
}

func TestChainIndicesAreMonotonicAcrossExecutions(t *testing.T) {
	def := task.NewDefinition("noop")
	def.Work = func(inst *task.Instance) error { return nil }

	c := chain.New()
	for i := 0; i < 3; i++ {
		result := task.Execute(def, nil, task.Options{Chain: c})
		assert.Equal(t, i, result.Index())
	}
	assert.Equal(t, 3, c.Size())
}

func TestLifecycleCallbackOrder(t *testing.T) {
	var order []string
	record := func(name string) task.CallbackFunc {
		return func(inst *task.Instance) error {
			order = append(order, name)
			return nil
		}
	}

	def := task.NewDefinition("callbacks")
	def.Work = func(inst *task.Instance) error { return nil }
	def.OnFunc(task.OnComplete, record("onComplete"))
	def.OnFunc(task.OnExecuted, record("onExecuted"))
	def.OnFunc(task.OnSuccess, record("onSuccess"))
	def.OnFunc(task.OnGood, record("onGood"))

	result := task.Execute(def, nil, task.Options{})

	require.True(t, result.Success())
	assert.Equal(t, []string{"onComplete", "onExecuted", "onSuccess", "onGood"}, order)
}
