package signaling

import (
	"fmt"
	"sync"
	"time"

	"github.com/flowforge/durable/werrors"
)

// SignalHandler processes one delivered signal's argument tuple. It may be
// registered sync; it is always awaited fully before condition
// re-evaluation (spec §4.6).
type SignalHandler func(args []any) error

// QueryHandler answers one query invocation synchronously (spec §4.6: "query
// handlers must be synchronous").
type QueryHandler func(args []any) (any, error)

// Mailbox is the per-workflow routing table of spec §3 ("Signal/Query
// definition", "signal buffer") plus the ConditionWaiter list of §3/§4.7. A
// single mutex serializes every operation, which is how this Go
// implementation satisfies spec §9's "cooperative single-threadedness" rule
// without an actor/event-loop: handler bodies here are plain synchronous
// functions, so holding the lock across one delivery is equivalent to
// marshalling that delivery onto the workflow's single logical owner.
type Mailbox struct {
	mu sync.Mutex

	signalHandlers map[string]SignalHandler
	buffer         map[string][][]any
	queryHandlers  map[string]QueryHandler

	waiters   []*waiter
	completed bool
}

// NewMailbox returns an empty Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		signalHandlers: make(map[string]SignalHandler),
		buffer:         make(map[string][][]any),
		queryHandlers:  make(map[string]QueryHandler),
	}
}

// SetSignalHandler registers fn for name, then flushes any buffered
// deliveries in arrival order (spec §4.6: "if a non-empty buffer exists for
// name, dequeue each stored arg tuple in insertion order and deliver it...
// before returning" — P6).
func (m *Mailbox) SetSignalHandler(name string, fn SignalHandler) {
	m.mu.Lock()
	m.signalHandlers[name] = fn
	queued := m.buffer[name]
	delete(m.buffer, name)
	m.mu.Unlock()

	for _, args := range queued {
		_ = fn(args)
		m.evaluateWaiters()
	}
}

// SetQueryHandler registers fn for name (spec §4.6).
func (m *Mailbox) SetQueryHandler(name string, fn QueryHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryHandlers[name] = fn
}

// Signal delivers args to name's handler, or buffers them if no handler is
// registered yet (spec §4.6). Returns werrors.ErrSignalAfterCompletion once
// the workflow has completed (spec §4.8).
func (m *Mailbox) Signal(name string, args []any) error {
	m.mu.Lock()
	if m.completed {
		m.mu.Unlock()
		return werrors.ErrSignalAfterCompletion
	}
	fn, ok := m.signalHandlers[name]
	if !ok {
		m.buffer[name] = append(m.buffer[name], args)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	err := fn(args)
	m.evaluateWaiters()
	return err
}

// Query invokes name's handler synchronously (spec §4.6). Queries remain
// serviceable after completion.
func (m *Mailbox) Query(name string, args []any) (any, error) {
	m.mu.Lock()
	fn, ok := m.queryHandlers[name]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", werrors.ErrQueryHandlerMissing, name)
	}
	return fn(args)
}

// MarkCompleted cancels every pending waiter (resolving each with false)
// and marks the mailbox closed to further signals (spec §4.8: "result()...
// the engine must have cancelled all pending conditions" — P13).
func (m *Mailbox) MarkCompleted() {
	m.mu.Lock()
	m.completed = true
	pending := m.waiters
	m.waiters = nil
	m.mu.Unlock()

	for _, w := range pending {
		w.cancel()
	}
}

// Predicate resolves a Condition's wait target (spec §4.7).
type Predicate func() (bool, error)

// Condition implements spec §4.7: evaluate predicate immediately; if false,
// wait until a later SetSignalHandler/Signal delivery re-evaluation finds it
// true, or timeout elapses (0 means no timeout).
func (m *Mailbox) Condition(predicate Predicate, timeout time.Duration) (bool, error) {
	ok, err := predicate()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	w := &waiter{predicate: predicate, done: make(chan bool, 1)}
	m.mu.Lock()
	if m.completed {
		m.mu.Unlock()
		return false, nil
	}
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()

	if timeout > 0 {
		w.timer = time.AfterFunc(timeout, func() { m.resolveWaiter(w, false) })
	}

	return <-w.done, nil
}

func (m *Mailbox) evaluateWaiters() {
	m.mu.Lock()
	snapshot := make([]*waiter, len(m.waiters))
	copy(snapshot, m.waiters)
	m.mu.Unlock()

	for _, w := range snapshot {
		ok, err := w.predicate()
		if err != nil {
			continue // spec §4.7: leave pending, a later re-evaluation may succeed
		}
		if ok {
			m.resolveWaiter(w, true)
		}
	}
}

func (m *Mailbox) resolveWaiter(w *waiter, result bool) {
	if !w.markResolved() {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	m.mu.Lock()
	for i, ww := range m.waiters {
		if ww == w {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	select {
	case w.done <- result:
	default:
	}
}

type waiter struct {
	predicate Predicate
	done      chan bool
	timer     *time.Timer

	mu       sync.Mutex
	resolved bool
}

func (w *waiter) markResolved() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.resolved {
		return false
	}
	w.resolved = true
	return true
}

// cancel resolves w with false without touching Mailbox.waiters, since
// MarkCompleted has already cleared that slice atomically before calling
// this on every formerly-pending waiter.
func (w *waiter) cancel() {
	if !w.markResolved() {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	select {
	case w.done <- false:
	default:
	}
}
