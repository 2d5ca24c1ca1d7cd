package chain

import "github.com/flowforge/durable/wcontext"

// TaskInfo is a minimal, immutable descriptor of the task that produced a
// Result. Result intentionally does not hold a live *task.Task reference —
// doing so would make the chain package depend on the task package, which
// itself depends on chain for Chain/Result; TaskInfo breaks that cycle while
// still letting callers identify which task ran.
type TaskInfo struct {
	// ID is the task instance's time-ordered identifier.
	ID string
	// Name identifies the task's declared type (e.g. its Go type name).
	Name string
}

// Result is the immutable outcome record of one task execution (spec §3,
// §4.3). It is constructed by the task engine only; exported fields are
// deliberately absent so construction always goes through NewResult, and there are
// no setters after construction — the Go equivalent of the source's
// "frozen" object (spec §9 Design Notes).
type Result struct {
	task    TaskInfo
	context *wcontext.Context
	chain   *Chain
	index   int

	state  State
	status Status

	reason    string
	hasReason bool

	cause error

	metadata map[string]any

	retries    int
	rolledBack bool

	// causedFailure/threwFailure are engine-only back-edges set exactly
	// once, immediately after construction, by the workflow composer when
	// propagating a child Result's skip/fail onto a parent (spec §9 Design
	// Notes: "mutable... despite the general immutability claim"). Treat
	// them as part of construction, not as a loophole for later mutation.
	causedFailure *Result
	threwFailure  *Result
}

// NewResult constructs a Result. It is exported for use by the task engine
// and workflow composer packages; ordinary callers receive Results from
// Task.Execute and never construct one directly.
func NewResult(params Params) *Result {
	md := make(map[string]any, len(params.Metadata))
	for k, v := range params.Metadata {
		md[k] = v
	}
	return &Result{
		task:       params.Task,
		context:    params.Context,
		chain:      params.Chain,
		index:      params.Index,
		state:      params.State,
		status:     params.Status,
		reason:     params.Reason,
		hasReason:  params.Reason != "",
		cause:      params.Cause,
		metadata:   md,
		retries:    params.Retries,
		rolledBack: params.RolledBack,
	}
}

// Params bundles the fields needed to construct a Result.
type Params struct {
	Task       TaskInfo
	Context    *wcontext.Context
	Chain      *Chain
	Index      int
	State      State
	Status     Status
	Reason     string
	Cause      error
	Metadata   map[string]any
	Retries    int
	RolledBack bool
}

// Task returns the descriptor of the task that produced this Result.
func (r *Result) Task() TaskInfo { return r.task }

// Context returns the shared execution Context.
func (r *Result) Context() *wcontext.Context { return r.context }

// Chain returns the execution-correlation Chain this Result was appended to.
func (r *Result) Chain() *Chain { return r.chain }

// Index returns this Result's position within its Chain.
func (r *Result) Index() int { return r.index }

// State returns the lifecycle state.
func (r *Result) State() State { return r.state }

// Status returns the outcome status.
func (r *Result) Status() Status { return r.status }

// Reason returns the reason string and whether one was set.
func (r *Result) Reason() (string, bool) { return r.reason, r.hasReason }

// Cause returns the underlying exception when the failure was unexpected
// (spec §3: "the underlying exception, when unexpected"), or nil otherwise.
func (r *Result) Cause() error { return r.cause }

// Metadata returns a defensive copy of the metadata bag. Mutating the
// returned map never affects the Result — this is what "frozen" (spec §3)
// means in Go: there is no setter, and reads never hand out the live map.
func (r *Result) Metadata() map[string]any {
	out := make(map[string]any, len(r.metadata))
	for k, v := range r.metadata {
		out[k] = v
	}
	return out
}

// Retries returns the number of retry attempts consumed before this Result.
func (r *Result) Retries() int { return r.retries }

// RolledBack reports whether the task's rollback hook ran.
func (r *Result) RolledBack() bool { return r.rolledBack }

// CausedFailure returns the child Result whose breakpoint status caused a
// parent workflow to halt, or nil if this Result did not propagate from a
// child.
func (r *Result) CausedFailure() *Result { return r.causedFailure }

// ThrewFailure returns the child Result passed to throw(), or nil.
func (r *Result) ThrewFailure() *Result { return r.threwFailure }

// SetPropagation records the child Result(s) that caused this Result's
// status, per spec §9's documented exception to immutability. It must be
// called at most once, immediately after NewResult, before the Result is
// otherwise observed.
func (r *Result) SetPropagation(causedFailure, threwFailure *Result) {
	r.causedFailure = causedFailure
	r.threwFailure = threwFailure
}

// Predicate accessors (spec §3, §4.3).
func (r *Result) Success() bool     { return r.status == StatusSuccess }
func (r *Result) Skipped() bool     { return r.status == StatusSkipped }
func (r *Result) Failed() bool      { return r.status == StatusFailed }
func (r *Result) Complete() bool    { return r.state == StateComplete }
func (r *Result) Interrupted() bool { return r.state == StateInterrupted }
func (r *Result) Executed() bool    { return r.Complete() || r.Interrupted() }
func (r *Result) Good() bool        { return r.Success() || r.Skipped() }
func (r *Result) Bad() bool         { return r.Skipped() || r.Failed() }

// ResultType enumerates the predicate names accepted by On, mirroring the
// source's fluent dispatch table (spec §3, §4.3).
type ResultType string

const (
	TypeSuccess     ResultType = "success"
	TypeSkipped     ResultType = "skipped"
	TypeFailed      ResultType = "failed"
	TypeComplete    ResultType = "complete"
	TypeInterrupted ResultType = "interrupted"
	TypeExecuted    ResultType = "executed"
	TypeGood        ResultType = "good"
	TypeBad         ResultType = "bad"
)

// On invokes handler(r) iff the named predicate matches r, and always
// returns r so calls can be chained. It never panics on an unknown type; it
// simply skips the call.
func (r *Result) On(t ResultType, handler func(*Result)) *Result {
	match := false
	switch t {
	case TypeSuccess:
		match = r.Success()
	case TypeSkipped:
		match = r.Skipped()
	case TypeFailed:
		match = r.Failed()
	case TypeComplete:
		match = r.Complete()
	case TypeInterrupted:
		match = r.Interrupted()
	case TypeExecuted:
		match = r.Executed()
	case TypeGood:
		match = r.Good()
	case TypeBad:
		match = r.Bad()
	}
	if match && handler != nil {
		handler(r)
	}
	return r
}

// JSON is the wire projection produced by ToJSON (spec §4.3).
type JSON struct {
	Index      int            `json:"index"`
	ChainID    string         `json:"chainId"`
	TaskID     string         `json:"taskId"`
	State      State          `json:"state"`
	Status     Status         `json:"status"`
	Outcome    string         `json:"outcome"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Retries    int            `json:"retries"`
	RolledBack bool           `json:"rolledBack"`
}

// ToJSON produces the projection described in spec §4.3. Outcome is "good"
// or "bad" depending on Good()/Bad() (success|skipped is good; the type
// itself is still carried verbatim via Status).
func (r *Result) ToJSON() JSON {
	outcome := "bad"
	if r.Good() {
		outcome = "good"
	}
	chainID := ""
	if r.chain != nil {
		chainID = r.chain.ID()
	}
	return JSON{
		Index:      r.index,
		ChainID:    chainID,
		TaskID:     r.task.ID,
		State:      r.state,
		Status:     r.status,
		Outcome:    outcome,
		Reason:     r.reason,
		Metadata:   r.Metadata(),
		Retries:    r.retries,
		RolledBack: r.rolledBack,
	}
}
