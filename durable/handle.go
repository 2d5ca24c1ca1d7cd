package durable

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/signaling"
	"github.com/flowforge/durable/store"
	"github.com/flowforge/durable/task"
	"github.com/flowforge/durable/wcontext"
)

// Handle is the external handle to a running durable workflow (spec §4.11
// C9/C10 extension): the same signal/query/result surface as
// signaling.Handle, plus read-only accessors over the event log.
type Handle struct {
	WorkflowID string

	exec    *Execution
	mailbox *signaling.Mailbox

	done   chan struct{}
	result *chain.Result

	mu sync.Mutex
}

// Start begins a brand-new durable run of def (spec §4.9 "Initialization
// (live)"), persisting a workflow.started event before def.Work is
// invoked, and finalizing the event log (workflow.completed/failed,
// checkpoint, markCompleted) once it returns.
func Start(ctx context.Context, st store.WorkflowStore, workflowID, workflowType string, def *task.Definition, args map[string]any) (*Handle, error) {
	wctx := wcontext.New()
	mailbox := signaling.NewMailbox()
	signaling.Attach(wctx, mailbox)

	exec, err := newLiveExecution(ctx, st, mailbox, workflowID, workflowType, args)
	if err != nil {
		return nil, fmt.Errorf("durable: start: %w", err)
	}
	Attach(wctx, exec)

	return run(exec, mailbox, def, args, wctx), nil
}

// Recover resumes a durable run from its latest checkpoint and event log
// (spec §4.9 "Initialization (recovery)", §4.12). The caller (typically
// the recovery package) supplies the original args recovered from the
// workflow.started event.
func Recover(ctx context.Context, st store.WorkflowStore, workflowID, workflowType string, def *task.Definition, args map[string]any) (*Handle, error) {
	wctx := wcontext.New()
	mailbox := signaling.NewMailbox()
	signaling.Attach(wctx, mailbox)

	exec, err := newReplayExecution(ctx, st, mailbox, workflowID, workflowType)
	if err != nil {
		return nil, fmt.Errorf("durable: recover: %w", err)
	}
	if exec.snapshotContext != nil {
		wctx.MergeMap(exec.snapshotContext)
	}
	Attach(wctx, exec)

	return run(exec, mailbox, def, args, wctx), nil
}

func run(exec *Execution, mailbox *signaling.Mailbox, def *task.Definition, args map[string]any, wctx *wcontext.Context) *Handle {
	h := &Handle{WorkflowID: exec.WorkflowID, exec: exec, mailbox: mailbox, done: make(chan struct{})}

	go func() {
		result := task.Execute(def, args, task.Options{Context: wctx})

		snapshot := wctx.ToObject()
		if result.Success() {
			_ = exec.Finalize(true, resultToJSON(result), snapshot)
		} else {
			reason, _ := result.Reason()
			if reason == "" {
				reason = "Unknown error"
			}
			_ = exec.Finalize(false, map[string]any{"error": reason}, snapshot)
		}

		mailbox.MarkCompleted()
		h.mu.Lock()
		h.result = result
		h.mu.Unlock()
		close(h.done)
	}()

	return h
}

func resultToJSON(r *chain.Result) map[string]any {
	j := r.ToJSON()
	return map[string]any{
		"status": string(j.Status),
		"state":  string(j.State),
	}
}

// Result blocks until the workflow completes and returns its final Result.
func (h *Handle) Result() *chain.Result {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Completed reports whether the workflow has finished, without blocking.
func (h *Handle) Completed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Events returns every event logged after afterSequence (spec §4.11
// "events(afterSequence?)").
func (h *Handle) Events(ctx context.Context, afterSequence int64) ([]store.Event, error) {
	return h.exec.store.GetEvents(ctx, h.WorkflowID, afterSequence)
}

// Checkpoint returns the latest saved checkpoint (spec §4.11 "checkpoint()").
func (h *Handle) Checkpoint(ctx context.Context) (*store.Checkpoint, error) {
	return h.exec.store.GetLatestCheckpoint(ctx, h.WorkflowID)
}

// CurrentSequence returns the Execution's current sequence counter (spec
// §4.11 "currentSequence").
func (h *Handle) CurrentSequence() int64 { return h.exec.CurrentSequence() }

// CompletedSteps returns the set of durable step names completed so far
// (spec §4.11 "completedSteps").
func (h *Handle) CompletedSteps() []string { return h.exec.CompletedSteps() }

// IsReplaying reports whether the workflow is still consuming events from
// the log (spec §4.11 "isReplaying").
func (h *Handle) IsReplaying() bool { return h.exec.IsReplaying() }

// SendSignal delivers args to def's handler, logging a signal.received
// event first unless the workflow is currently replaying or delivering a
// replayed signal itself (spec §4.10).
func SendSignal[Args any](h *Handle, def signaling.Signal[Args], args Args) error {
	return h.exec.signalFromLive(def.Name(), []any{args})
}

// SendQuery invokes def's handler synchronously; queries are never logged
// (spec §4.9 only logs step/condition/sleep/signal events).
func SendQuery[R, Args any](h *Handle, def signaling.Query[R, Args], args Args) (R, error) {
	var zero R
	raw, err := h.mailbox.Query(def.Name(), []any{args})
	if err != nil {
		return zero, err
	}
	r, ok := raw.(R)
	if !ok {
		return zero, fmt.Errorf("durable: query %q returned %T, want %T", def.Name(), raw, zero)
	}
	return r, nil
}
