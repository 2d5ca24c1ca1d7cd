package werrors

import (
	"fmt"

	"github.com/flowforge/durable/chain"
)

// Fault is the internal control-flow signal raised by skip(), fail(), and
// throw() inside a task's work() body (spec §4.4 step 7, §9 Design Notes:
// "Halt via exception is an internal control-flow trick"). The task engine
// catches it and never lets it escape execute(); executeStrict() re-raises
// it to the caller when the resulting status is in the task's breakpoints.
type Fault struct {
	Status   chain.Status
	Reason   string
	Metadata map[string]any
	// Cause is set by throw() and by PropagateFault, carrying the child
	// Result's Cause.
	Cause error

	// CausedFailure/ThrewFailure, when set, are copied onto the finished
	// Result's back-edges of the same name (spec §9 Design Notes). The
	// workflow composer sets CausedFailure when its own breakpoint logic
	// auto-propagates a child's status; Instance.Throw sets ThrewFailure for
	// an explicit user-invoked throw(childResult).
	CausedFailure *chain.Result
	ThrewFailure  *chain.Result
}

// SkipFault constructs a Fault representing skip(reason, metadata).
func SkipFault(reason string, metadata map[string]any) *Fault {
	return &Fault{Status: chain.StatusSkipped, Reason: reason, Metadata: metadata}
}

// FailFault constructs a Fault representing fail(reason, metadata).
func FailFault(reason string, metadata map[string]any) *Fault {
	return &Fault{Status: chain.StatusFailed, Reason: reason, Metadata: metadata}
}

// PropagateFault constructs a Fault that re-raises child's status onto the
// enclosing task, for use by automatic breakpoint propagation (workflow
// composer) rather than an explicit user throw(). Sets CausedFailure.
func PropagateFault(child *chain.Result, metadata map[string]any) *Fault {
	reason, _ := child.Reason()
	return &Fault{Status: child.Status(), Reason: reason, Metadata: metadata, Cause: child.Cause(), CausedFailure: child}
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Reason != "" {
		return fmt.Sprintf("%s: %s", f.Status, f.Reason)
	}
	return string(f.Status)
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As chains.
func (f *Fault) Unwrap() error { return f.Cause }

// IsSkip reports whether the fault represents a skip().
func (f *Fault) IsSkip() bool { return f.Status == chain.StatusSkipped }

// IsFail reports whether the fault represents a fail() or throw().
func (f *Fault) IsFail() bool { return f.Status == chain.StatusFailed }
