// Package durable implements Durable execution (C10, spec §4.9-§4.11): an
// event-sourced augmentation of the Task engine that replays a workflow's
// `step`/`condition`/`sleep` calls from a persisted event log after a
// restart instead of re-running their side effects, grounded on the
// teacher's runtime/agent/engine + runtime/agent/engine/temporal pair
// (durable execution as an alternate realization of the same authoring
// surface a real workflow engine provides).
package durable

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowforge/durable/signaling"
	"github.com/flowforge/durable/store"
	"github.com/flowforge/durable/werrors"
)

// Execution is the per-workflow durable state machine (spec §4.9): an
// event log cursor plus the counters and completed-step set a deterministic
// replay needs to reproduce the same call sequence.
type Execution struct {
	WorkflowID   string
	WorkflowType string

	store   store.WorkflowStore
	mailbox *signaling.Mailbox
	ctx     context.Context

	mu sync.Mutex

	sequence         int64
	conditionCounter int
	sleepCounter     int
	completedSteps   map[string]bool

	replaying               bool
	deliveringReplaySignals bool
	replayEvents            []store.Event
	replayCursor            int

	// snapshotContext is restored into the workflow's wcontext.Context by
	// the caller (durable.Recover) before work() runs; Execution itself
	// only carries it through construction.
	snapshotContext map[string]any
}

// newLiveExecution starts a brand-new durable run: sequence 0, counters
// zero, and a freshly-appended workflow.started event (spec §4.9
// "Initialization (live)").
func newLiveExecution(ctx context.Context, st store.WorkflowStore, mailbox *signaling.Mailbox, workflowID, workflowType string, args map[string]any) (*Execution, error) {
	e := &Execution{
		WorkflowID: workflowID, WorkflowType: workflowType,
		store: st, mailbox: mailbox, ctx: ctx,
		completedSteps: make(map[string]bool),
	}
	if err := e.appendEvent(store.EventWorkflowStarted, map[string]any{"workflowType": workflowType, "args": args}); err != nil {
		return nil, err
	}
	return e, nil
}

// newReplayExecution primes a durable run from a checkpoint (spec §4.9
// "Initialization (recovery)"): restores sequence/counters/completedSteps
// from the checkpoint (if any) and preloads events past it.
func newReplayExecution(ctx context.Context, st store.WorkflowStore, mailbox *signaling.Mailbox, workflowID, workflowType string) (*Execution, error) {
	e := &Execution{
		WorkflowID: workflowID, WorkflowType: workflowType,
		store: st, mailbox: mailbox, ctx: ctx,
		completedSteps: make(map[string]bool),
		replaying:      true,
	}

	cp, err := st.GetLatestCheckpoint(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("durable: load checkpoint: %w", err)
	}
	var afterSeq int64
	if cp != nil {
		e.sequence = cp.Sequence
		e.conditionCounter = cp.ConditionCounter
		e.sleepCounter = cp.SleepCounter
		e.snapshotContext = cp.Context
		for _, name := range cp.CompletedSteps {
			e.completedSteps[name] = true
		}
		afterSeq = cp.Sequence
	}

	events, err := st.GetEvents(ctx, workflowID, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("durable: load events: %w", err)
	}
	e.replayEvents = events

	// workflow.started only appears once, immediately after the
	// checkpoint's own starting point; it has no corresponding work() call
	// to match against, so it is consumed here rather than inside Step.
	if len(e.replayEvents) > 0 && e.replayEvents[0].Type == store.EventWorkflowStarted {
		e.advanceLocked()
	}
	if len(e.replayEvents) == 0 {
		e.replaying = false
	}
	return e, nil
}

// IsReplaying reports whether Execution is still consuming events from the
// log rather than running live (spec §4.11 "isReplaying").
func (e *Execution) IsReplaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.replaying
}

// CurrentSequence returns the last sequence appended or replayed so far
// (spec §4.11 "currentSequence").
func (e *Execution) CurrentSequence() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequence
}

// CompletedSteps returns a snapshot of completed step names (spec §4.11
// "completedSteps").
func (e *Execution) CompletedSteps() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.completedSteps))
	for name := range e.completedSteps {
		out = append(out, name)
	}
	return out
}

func (e *Execution) nextSequence() int64 {
	e.sequence++
	return e.sequence
}

// appendEvent persists one event via the store, stamping it with the next
// sequence number. Caller must not hold e.mu.
func (e *Execution) appendEvent(t store.EventType, payload map[string]any) error {
	e.mu.Lock()
	seq := e.nextSequence()
	e.mu.Unlock()

	return e.store.AppendEvent(e.ctx, e.WorkflowID, newEvent(t, seq, payload))
}

func (e *Execution) peekLocked() (store.Event, bool) {
	if e.replayCursor >= len(e.replayEvents) {
		return store.Event{}, false
	}
	return e.replayEvents[e.replayCursor], true
}

func (e *Execution) advanceLocked() {
	ev := e.replayEvents[e.replayCursor]
	if ev.Sequence > e.sequence {
		e.sequence = ev.Sequence
	}
	e.replayCursor++
}

// deliverReplaySignals drains any leading signal.received events through
// the live signal path, flagged so the entry point does not re-log them
// (spec §4.9 step/condition Replay, §4.10).
func (e *Execution) deliverReplaySignals() {
	for {
		e.mu.Lock()
		ev, ok := e.peekLocked()
		if !ok || ev.Type != store.EventSignalReceived {
			e.mu.Unlock()
			return
		}
		e.advanceLocked()
		e.deliveringReplaySignals = true
		e.mu.Unlock()

		name := payloadString(ev.Payload, "signal")
		args, _ := ev.Payload["payload"].([]any)
		_ = e.mailbox.Signal(name, args)

		e.mu.Lock()
		e.deliveringReplaySignals = false
		e.mu.Unlock()
	}
}

// Checkpoint saves a checkpoint capturing sequence/counters/completedSteps
// and ctxSnapshot as the current Context projection (spec §4.9
// "Checkpointing").
func (e *Execution) Checkpoint(status store.CheckpointStatus, ctxSnapshot map[string]any) error {
	e.mu.Lock()
	cp := store.Checkpoint{
		WorkflowID: e.WorkflowID, WorkflowType: e.WorkflowType, Sequence: e.sequence,
		Context: ctxSnapshot, Status: status, CompletedSteps: e.CompletedStepsLocked(),
		ConditionCounter: e.conditionCounter, SleepCounter: e.sleepCounter, CreatedAt: nowMillis(),
	}
	e.mu.Unlock()
	return e.store.SaveCheckpoint(e.ctx, cp)
}

// CompletedStepsLocked must be called with e.mu held.
func (e *Execution) CompletedStepsLocked() []string {
	out := make([]string, 0, len(e.completedSteps))
	for name := range e.completedSteps {
		out = append(out, name)
	}
	return out
}

// Step implements the durable step primitive (spec §4.9 "Durable step").
func (e *Execution) Step(name string, fn func() (any, error)) (any, error) {
	e.mu.Lock()
	replaying := e.replaying
	e.mu.Unlock()

	if replaying {
		e.deliverReplaySignals()

		e.mu.Lock()
		scheduled, ok := e.peekLocked()
		if ok && scheduled.Type == store.EventStepScheduled && payloadString(scheduled.Payload, "step") == name {
			e.advanceLocked()
			completed, ok2 := e.peekLocked()
			if ok2 && completed.Type == store.EventStepCompleted && payloadString(completed.Payload, "step") == name {
				e.advanceLocked()
				e.completedSteps[name] = true
				result := unwrapJSONNull(completed.Payload["result"])
				e.mu.Unlock()
				return result, nil
			}
			if ok2 && completed.Type == store.EventStepFailed && payloadString(completed.Payload, "step") == name {
				e.advanceLocked()
				e.mu.Unlock()
				return nil, fmt.Errorf("%s", payloadString(completed.Payload, "error"))
			}
		}
		e.replaying = false
		e.mu.Unlock()
	}

	e.mu.Lock()
	if e.completedSteps[name] {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", werrors.ErrDuplicateStepName, name)
	}
	e.mu.Unlock()

	if err := e.appendEvent(store.EventStepScheduled, map[string]any{"step": name}); err != nil {
		return nil, err
	}

	result, err := fn()
	if err != nil {
		_ = e.appendEvent(store.EventStepFailed, map[string]any{"step": name, "error": err.Error()})
		return nil, err
	}

	if err := e.appendEvent(store.EventStepCompleted, map[string]any{"step": name, "result": jsonNull(result)}); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.completedSteps[name] = true
	e.mu.Unlock()
	return result, nil
}

// Sleep implements the durable sleep primitive (spec §4.9 "Durable sleep").
func (e *Execution) Sleep(d time.Duration) error {
	e.mu.Lock()
	n := e.sleepCounter
	e.sleepCounter++
	key := fmt.Sprintf("sleep_%d", n)
	replaying := e.replaying
	e.mu.Unlock()

	if replaying {
		e.mu.Lock()
		scheduled, ok := e.peekLocked()
		if ok && scheduled.Type == store.EventSleepScheduled && payloadString(scheduled.Payload, "key") == key {
			e.advanceLocked()
			completed, ok2 := e.peekLocked()
			if ok2 && completed.Type == store.EventSleepCompleted && payloadString(completed.Payload, "key") == key {
				e.advanceLocked()
				e.mu.Unlock()
				return nil
			}
			deadline := deadlineFromPayload(scheduled.Payload)
			e.replaying = false
			e.mu.Unlock()
			remaining := time.Until(deadline)
			if remaining > 0 {
				time.Sleep(remaining)
			}
			return e.appendEvent(store.EventSleepCompleted, map[string]any{"key": key})
		}
		e.replaying = false
		e.mu.Unlock()
	}

	deadline := time.Now().Add(d)
	if err := e.appendEvent(store.EventSleepScheduled, map[string]any{"key": key, "durationMs": d.Milliseconds(), "deadline": deadline.UnixMilli()}); err != nil {
		return err
	}
	time.Sleep(d)
	return e.appendEvent(store.EventSleepCompleted, map[string]any{"key": key})
}

// Condition implements the durable condition primitive (spec §4.9
// "Durable condition"), overriding the non-durable condition primitive of
// §4.7 when a workflow runs under durable execution.
func (e *Execution) Condition(predicate signaling.Predicate, timeout time.Duration) (bool, error) {
	e.mu.Lock()
	n := e.conditionCounter
	e.conditionCounter++
	key := fmt.Sprintf("condition_%d", n)
	replaying := e.replaying
	e.mu.Unlock()

	if replaying {
		e.deliverReplaySignals()

		e.mu.Lock()
		scheduled, ok := e.peekLocked()
		if !ok || scheduled.Type != store.EventConditionSched || payloadString(scheduled.Payload, "key") != key {
			e.replaying = false
			e.mu.Unlock()
			return e.liveCondition(key, predicate, timeout)
		}
		e.advanceLocked()
		e.mu.Unlock()

		for {
			e.deliverReplaySignals()
			e.mu.Lock()
			ev, ok := e.peekLocked()
			if !ok {
				deadline := deadlineFromPayload(scheduled.Payload)
				e.replaying = false
				e.mu.Unlock()

				remaining := time.Until(deadline)
				if !deadline.IsZero() && remaining <= 0 {
					_ = e.appendEvent(store.EventConditionTimeout, map[string]any{"key": key})
					return false, nil
				}
				return e.waitOnlyCondition(key, predicate, remaining)
			}
			switch {
			case ev.Type == store.EventConditionSatisfy && payloadString(ev.Payload, "key") == key:
				e.advanceLocked()
				e.mu.Unlock()
				return true, nil
			case ev.Type == store.EventConditionTimeout && payloadString(ev.Payload, "key") == key:
				e.advanceLocked()
				e.mu.Unlock()
				return false, nil
			default:
				e.replaying = false
				e.mu.Unlock()
				return e.waitOnlyCondition(key, predicate, timeout)
			}
		}
	}

	return e.liveCondition(key, predicate, timeout)
}

// liveCondition runs the full live path of spec §4.9 "Durable condition":
// schedule, delegate to the non-durable primitive, log the outcome.
func (e *Execution) liveCondition(key string, predicate signaling.Predicate, timeout time.Duration) (bool, error) {
	payload := map[string]any{"key": key}
	if timeout > 0 {
		deadline := time.Now().Add(timeout)
		payload["timeoutMs"] = timeout.Milliseconds()
		payload["deadline"] = deadline.UnixMilli()
	}
	if err := e.appendEvent(store.EventConditionSched, payload); err != nil {
		return false, err
	}
	return e.waitOnlyCondition(key, predicate, timeout)
}

// waitOnlyCondition delegates to the mailbox's cooperative wait and logs
// the outcome, without (re-)appending condition.scheduled — used both by
// liveCondition and by the replay-exhausted-mid-condition fallback, which
// has already observed the original schedule event.
func (e *Execution) waitOnlyCondition(key string, predicate signaling.Predicate, remaining time.Duration) (bool, error) {
	ok, err := e.mailbox.Condition(predicate, remaining)
	if err != nil {
		return false, err
	}
	if ok {
		return true, e.appendEvent(store.EventConditionSatisfy, map[string]any{"key": key})
	}
	return false, e.appendEvent(store.EventConditionTimeout, map[string]any{"key": key})
}

// signalFromLive records a live (non-replay) signal delivery as
// signal.received, per spec §4.10: log only when neither replaying nor
// delivering replay signals.
func (e *Execution) signalFromLive(name string, args []any) error {
	e.mu.Lock()
	shouldLog := !e.replaying && !e.deliveringReplaySignals
	e.mu.Unlock()

	if shouldLog {
		if err := e.appendEvent(store.EventSignalReceived, map[string]any{"signal": name, "payload": args}); err != nil {
			return err
		}
	}
	return e.mailbox.Signal(name, args)
}

// Finalize appends the terminal workflow.completed/workflow.failed event,
// saves the final checkpoint, and marks the workflow completed in the
// store (spec §4.9 "Finalization").
func (e *Execution) Finalize(success bool, reasonOrResult map[string]any, ctxSnapshot map[string]any) error {
	if success {
		if err := e.appendEvent(store.EventWorkflowCompleted, map[string]any{"result": reasonOrResult}); err != nil {
			return err
		}
	} else {
		if err := e.appendEvent(store.EventWorkflowFailed, reasonOrResult); err != nil {
			return err
		}
	}

	status := store.CheckpointCompleted
	if !success {
		status = store.CheckpointFailed
	}
	if err := e.Checkpoint(status, ctxSnapshot); err != nil {
		return err
	}
	return e.store.MarkCompleted(e.ctx, e.WorkflowID)
}
