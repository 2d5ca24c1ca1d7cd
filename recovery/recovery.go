// Package recovery implements the Recovery coordinator (C12, spec §4.12):
// on boot (or periodically, via WatchAndRecover), list every workflow the
// store still considers active, reconstruct it from its event log and
// latest checkpoint in replay mode, and hand back a live durable.Handle
// for each one successfully recovered.
package recovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowforge/durable/durable"
	"github.com/flowforge/durable/store"
	"github.com/flowforge/durable/task"
	"github.com/flowforge/durable/telemetry"
)

// Registry maps a workflow-type name to the task.Definition that
// implements it (spec §4.12 "a registry mapping workflow-type name →
// concrete class").
type Registry struct {
	mu    sync.RWMutex
	types map[string]*task.Definition
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry { return &Registry{types: make(map[string]*task.Definition)} }

// Register associates workflowType with def.
func (r *Registry) Register(workflowType string, def *task.Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[workflowType] = def
}

// Lookup returns the Definition registered for workflowType, if any.
func (r *Registry) Lookup(workflowType string) (*task.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[workflowType]
	return def, ok
}

// Coordinator drives recovery against one WorkflowStore and Registry.
type Coordinator struct {
	Store    store.WorkflowStore
	Registry *Registry
	Logger   telemetry.Logger
}

// New returns a Coordinator. logger may be nil, in which case telemetry
// events are discarded.
func New(st store.WorkflowStore, reg *Registry, logger telemetry.Logger) *Coordinator {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &Coordinator{Store: st, Registry: reg, Logger: logger}
}

// RecoverAll implements spec §4.12 recoverAll(): for every workflow the
// store still considers active, look up its registered Definition, prime a
// durable.Execution in replay mode from its checkpoint and event log, pull
// the original start args from the workflow.started event, and resume
// execution. Unknown workflow types are skipped with a warning and left in
// the store (not removed), per spec.
func (c *Coordinator) RecoverAll(ctx context.Context) ([]*durable.Handle, error) {
	active, err := c.Store.ListActiveWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("recovery: list active workflows: %w", err)
	}

	var handles []*durable.Handle
	for _, info := range active {
		def, ok := c.Registry.Lookup(info.WorkflowType)
		if !ok {
			c.Logger.Warn(ctx, "recovery: unknown workflow type, skipping",
				"workflowId", info.WorkflowID, "workflowType", info.WorkflowType)
			continue
		}

		args, err := c.startArgs(ctx, info.WorkflowID)
		if err != nil {
			c.Logger.Warn(ctx, "recovery: failed to load start args, skipping",
				"workflowId", info.WorkflowID, "error", err.Error())
			continue
		}

		h, err := durable.Recover(ctx, c.Store, info.WorkflowID, info.WorkflowType, def, args)
		if err != nil {
			c.Logger.Warn(ctx, "recovery: failed to recover workflow, skipping",
				"workflowId", info.WorkflowID, "error", err.Error())
			continue
		}
		c.Logger.Info(ctx, "recovery: recovered workflow", "workflowId", info.WorkflowID, "workflowType", info.WorkflowType)
		handles = append(handles, h)
	}
	return handles, nil
}

func (c *Coordinator) startArgs(ctx context.Context, workflowID string) (map[string]any, error) {
	events, err := c.Store.GetEvents(ctx, workflowID, -1)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if e.Type == store.EventWorkflowStarted {
			args, _ := e.Payload["args"].(map[string]any)
			return args, nil
		}
	}
	return nil, fmt.Errorf("recovery: no workflow.started event found for %q", workflowID)
}

// WatchAndRecover runs RecoverAll every interval until ctx is cancelled, for
// processes that want to pick up workflows left active by a different
// crashed process without a manual restart hook (spec §12.3).
func (c *Coordinator) WatchAndRecover(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.RecoverAll(ctx); err != nil {
				c.Logger.Warn(ctx, "recovery: watch tick failed", "error", err.Error())
			}
		}
	}
}
