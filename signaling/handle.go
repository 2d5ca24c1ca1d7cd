package signaling

import (
	"fmt"
	"sync"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/task"
	"github.com/flowforge/durable/wcontext"
)

// Handle is the external, thread-safe handle to a running interactive
// workflow (spec §4.8 C9 "Workflow Handle"): the caller's side of the
// Mailbox, plus a memoized final Result once the workflow's work() returns.
type Handle struct {
	WorkflowID string

	mailbox *Mailbox

	once   sync.Once
	result *chain.Result
	done   chan struct{}
}

// Start spawns def's execution in its own goroutine, attaching a fresh
// Mailbox to opts.Context (creating one if absent) before the workflow's
// Instance is built, so the workflow's work() body can reach it via From.
// The Mailbox is marked completed once the goroutine returns, cancelling
// any pending Condition waits (spec §4.8 P13).
func Start(def *task.Definition, args map[string]any, opts task.Options) *Handle {
	ctx := opts.Context
	if ctx == nil {
		ctx = wcontext.New()
	}
	opts.Context = ctx

	mb := NewMailbox()
	Attach(ctx, mb)

	h := &Handle{WorkflowID: def.Name, mailbox: mb, done: make(chan struct{})}

	go func() {
		result := task.Execute(def, args, opts)
		mb.MarkCompleted()
		h.result = result
		close(h.done)
	}()

	return h
}

// Result blocks until the workflow's work() has returned, then returns its
// final chain.Result. Calling Result more than once returns the same value.
func (h *Handle) Result() *chain.Result {
	<-h.done
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

// SendSignal delivers args to def's handler on h's workflow (spec §4.8,
// C9 "sendSignal"). It returns werrors.ErrSignalAfterCompletion if the
// workflow has already finished.
func SendSignal[Args any](h *Handle, def Signal[Args], args Args) error {
	return h.mailbox.Signal(def.Name(), []any{args})
}

// SendQuery invokes def's handler on h's workflow synchronously (spec
// §4.8, C9 "sendQuery") and type-asserts the result to R.
func SendQuery[R, Args any](h *Handle, def Query[R, Args], args Args) (R, error) {
	var zero R
	raw, err := h.mailbox.Query(def.Name(), []any{args})
	if err != nil {
		return zero, err
	}
	r, ok := raw.(R)
	if !ok {
		return zero, fmt.Errorf("signaling: query %q returned %T, want %T", def.Name(), raw, zero)
	}
	return r, nil
}
