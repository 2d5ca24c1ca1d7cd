package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/config"
	"github.com/flowforge/durable/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureSetsProcessWideDefaults(t *testing.T) {
	defer config.Configure(func(b *config.Bag) {
		b.TaskBreakpoints = nil
		b.RollbackOn = nil
	})

	config.Configure(func(b *config.Bag) {
		b.TaskBreakpoints = []chain.Status{chain.StatusSkipped}
		b.RollbackOn = []chain.Status{chain.StatusSkipped}
	})

	assert.Equal(t, []chain.Status{chain.StatusSkipped}, task.DefaultTaskBreakpoints)
	assert.Equal(t, []chain.Status{chain.StatusSkipped}, task.DefaultRollbackOn)
}

func TestConfigureRegistersExceptionHooks(t *testing.T) {
	defer config.Configure(func(b *config.Bag) {
		b.Backtrace = false
		b.BacktraceCleaner = nil
		b.ExceptionHandler = nil
	})

	var reportedErr error
	var reportedFrames []string
	config.Configure(func(b *config.Bag) {
		b.Backtrace = true
		b.BacktraceCleaner = func(frames []string) []string {
			if len(frames) == 0 {
				return frames
			}
			return frames[:1]
		}
		b.ExceptionHandler = func(err error, backtrace []string) {
			reportedErr = err
			reportedFrames = backtrace
		}
	})

	def := task.NewDefinition("boom")
	def.Work = func(inst *task.Instance) error { return assertErr }
	result := task.Execute(def, nil, task.Options{})

	require.False(t, result.Success())
	require.Error(t, reportedErr)
	assert.Equal(t, assertErr, reportedErr)
	assert.Len(t, reportedFrames, 1)
}

var assertErr = os.ErrInvalid

func TestLoadYAMLAppliesBreakpoints(t *testing.T) {
	defer config.Configure(func(b *config.Bag) {
		b.TaskBreakpoints = nil
		b.WorkflowBreakpoints = nil
	})

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "taskBreakpoints:\n  - skipped\nworkflowBreakpoints:\n  - failed\nbacktrace: true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	fc, err := config.LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"skipped"}, fc.TaskBreakpoints)
	assert.Equal(t, []chain.Status{chain.StatusSkipped}, task.DefaultTaskBreakpoints)
}
