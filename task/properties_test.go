package task_test

import (
	"testing"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/task"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestResultTotalityProperty encodes spec §8 P1: execute always returns a
// Result whose (state, status) pair is one of the three legal combinations,
// regardless of what the task body does.
func TestResultTotalityProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	props := gopter.NewProperties(params)

	outcomes := []func(inst *task.Instance) error{
		func(inst *task.Instance) error { return nil },
		func(inst *task.Instance) error { return inst.Skip("skip", nil) },
		func(inst *task.Instance) error { return inst.Fail("fail", nil) },
	}

	props.Property("(state,status) is always a legal pair", prop.ForAll(
		func(choice int) bool {
			def := task.NewDefinition("totality")
			def.Work = outcomes[choice%len(outcomes)]
			result := task.Execute(def, nil, task.Options{})

			switch {
			case result.Complete() && result.Success():
				return true
			case result.Interrupted() && result.Skipped():
				return true
			case result.Interrupted() && result.Failed():
				return true
			default:
				return false
			}
		},
		gen.IntRange(0, len(outcomes)-1),
	))

	props.TestingRun(t)
}

// TestChainIndexMonotonicityProperty encodes spec §8 P2: N executions on
// one chain yield indices 0..N-1 in order.
func TestChainIndexMonotonicityProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	props := gopter.NewProperties(params)

	props.Property("chain indices are assigned 0..N-1 in order", prop.ForAll(
		func(n int) bool {
			def := task.NewDefinition("counter")
			def.Work = func(inst *task.Instance) error { return nil }

			c := chain.New()
			for i := 0; i < n; i++ {
				result := task.Execute(def, nil, task.Options{Chain: c})
				if result.Index() != i {
					return false
				}
			}
			return c.Size() == n
		},
		gen.IntRange(0, 20),
	))

	props.TestingRun(t)
}

// TestMetadataImmutabilityProperty encodes spec §8 P3: mutating a returned
// metadata map never affects the Result.
func TestMetadataImmutabilityProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	props := gopter.NewProperties(params)

	props.Property("mutating returned metadata does not affect the Result", prop.ForAll(
		func(key, value string) bool {
			def := task.NewDefinition("meta")
			def.Work = func(inst *task.Instance) error {
				return inst.Fail("boom", map[string]any{key: value})
			}
			result := task.Execute(def, nil, task.Options{})

			md := result.Metadata()
			md[key] = "mutated"
			md["extra-key-that-should-not-appear"] = true

			again := result.Metadata()
			_, leaked := again["extra-key-that-should-not-appear"]
			return again[key] == value && !leaked
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.AlphaString(),
	))

	props.TestingRun(t)
}
