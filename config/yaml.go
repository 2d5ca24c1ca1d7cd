package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowforge/durable/chain"
)

// FileConfig is the shape LoadYAML understands — the ambient "how do
// operators configure this without recompiling" surface the core itself
// does not require (spec §6 is Go-code-first; this is additive).
type FileConfig struct {
	TaskBreakpoints     []string `yaml:"taskBreakpoints"`
	WorkflowBreakpoints []string `yaml:"workflowBreakpoints"`
	RollbackOn          []string `yaml:"rollbackOn"`
	Backtrace           bool     `yaml:"backtrace"`
	Retries             int      `yaml:"retries"`
}

// LoadYAML reads path and applies its breakpoint, rollbackOn and backtrace
// settings via Configure. The retries field is parsed into the returned
// FileConfig but is not applied to any engine default. It never touches
// fields a FileConfig cannot express
// (middlewares, callbacks, coercions, validators, logger, exceptionHandler
// all stay Go-code-only).
func LoadYAML(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	Configure(func(b *Bag) {
		if len(fc.TaskBreakpoints) > 0 {
			b.TaskBreakpoints = toStatuses(fc.TaskBreakpoints)
		}
		if len(fc.WorkflowBreakpoints) > 0 {
			b.WorkflowBreakpoints = toStatuses(fc.WorkflowBreakpoints)
		}
		if len(fc.RollbackOn) > 0 {
			b.RollbackOn = toStatuses(fc.RollbackOn)
		}
		b.Backtrace = fc.Backtrace
	})

	return &fc, nil
}

func toStatuses(names []string) []chain.Status {
	out := make([]chain.Status, len(names))
	for i, n := range names {
		out[i] = chain.Status(n)
	}
	return out
}
