// Package werrors declares the sentinel errors and control-flow fault types
// shared across the engine (spec §7 Error Handling Design).
package werrors

import "errors"

// Sentinel errors for the failure kinds enumerated in spec §7 items 5-8 plus
// handle/store misuse. Callers use errors.Is to match these across package
// boundaries.
var (
	// ErrConfigInvalid names a malformed coercion/validator registry lookup
	// or process-wide configuration value. No code in this module returns
	// it; binding errors surface as "[ConfigurationError] ..." Results.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrDuplicateStepName is returned when a durable step name repeats
	// within a single live run (spec §4.9, §7 item 6: fatal in live mode).
	ErrDuplicateStepName = errors.New("duplicate step name in run")

	// ErrQueryHandlerMissing is returned by a workflow Handle's Query method
	// when no handler is registered for the given Query name.
	ErrQueryHandlerMissing = errors.New("no handler registered for query")

	// ErrSignalAfterCompletion is returned by a workflow Handle's Signal
	// method once the workflow has completed.
	ErrSignalAfterCompletion = errors.New("signal sent after workflow completion")

	// ErrWorkflowNotRegistered names a stored workflow type with no
	// matching registered class. The recovery coordinator logs and skips
	// such a workflow; it does not return this error.
	ErrWorkflowNotRegistered = errors.New("workflow type not registered")

	// ErrSequenceConflict names an appended event whose sequence number
	// collides with an existing one. The WorkflowStore backends return the
	// distinct store.ErrSequenceConflict, which errors.Is does not match
	// against this value.
	ErrSequenceConflict = errors.New("event sequence conflict")

	// ErrCheckpointMismatch names a checkpoint whose sequence does not
	// correspond to the last persisted event (spec §3 Checkpoint
	// invariant). No code in this module returns it.
	ErrCheckpointMismatch = errors.New("checkpoint sequence mismatch")

	// ErrUnknownDuration is returned by the duration parser when it cannot
	// make sense of the input string (spec §4.7).
	ErrUnknownDuration = errors.New("unparseable duration")
)
