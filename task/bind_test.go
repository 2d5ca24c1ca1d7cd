package task_test

import (
	"testing"
	"time"

	"github.com/flowforge/durable/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeSourcePriorityArgsOverContextOverSourceOverDefault(t *testing.T) {
	def := task.NewDefinition("priority")
	def.Method("fromSource", func(inst *task.Instance) (any, error) { return "from-source", nil })
	def.Attributes = []*task.AttributeDef{
		{Name: "value", Types: []string{"string"}, Source: "fromSource", Default: "from-default"},
	}

	var got string
	def.Work = func(inst *task.Instance) error {
		v, _ := inst.Attr("value")
		got = v.(string)
		return nil
	}

	result := task.Execute(def, map[string]any{"value": "from-args"}, task.Options{})
	require.True(t, result.Success())
	assert.Equal(t, "from-args", got)
}

func TestAttributeDefaultAppliesWhenAbsent(t *testing.T) {
	def := task.NewDefinition("defaults")
	def.Attributes = []*task.AttributeDef{
		{Name: "value", Types: []string{"string"}, Default: "from-default"},
	}

	var got string
	def.Work = func(inst *task.Instance) error {
		v, _ := inst.Attr("value")
		got = v.(string)
		return nil
	}

	result := task.Execute(def, nil, task.Options{})
	require.True(t, result.Success())
	assert.Equal(t, "from-default", got)
}

func TestAttributeGatedOffByUnlessSkipsRequired(t *testing.T) {
	def := task.NewDefinition("gated")
	def.Attributes = []*task.AttributeDef{
		{Name: "value", Required: true, UnlessFunc: func(inst *task.Instance) (bool, error) { return true, nil }},
	}
	def.Work = func(inst *task.Instance) error { return nil }

	result := task.Execute(def, nil, task.Options{})
	require.True(t, result.Success())
}

func TestAttributeCoercesTimeViaRFC3339(t *testing.T) {
	def := task.NewDefinition("timed")
	def.Attributes = []*task.AttributeDef{
		{Name: "when", Types: []string{"time"}},
	}
	var got time.Time
	def.Work = func(inst *task.Instance) error {
		v, _ := inst.Attr("when")
		got = v.(time.Time)
		return nil
	}

	result := task.Execute(def, map[string]any{"when": "2024-01-02T15:04:05Z"}, task.Options{})
	require.True(t, result.Success())
	assert.Equal(t, 2024, got.Year())
}

func TestAttributeLengthValidationFailureIsInvalid(t *testing.T) {
	min := 5
	def := task.NewDefinition("validated")
	def.Attributes = []*task.AttributeDef{
		{Name: "name", Required: true, Types: []string{"string"}, MinLength: &min},
	}
	def.Work = func(inst *task.Instance) error { return nil }

	result := task.Execute(def, map[string]any{"name": "ab"}, task.Options{})
	require.True(t, result.Failed())
	reason, _ := result.Reason()
	assert.Equal(t, "Invalid", reason)
}
