package store

import (
	"context"
	"errors"
)

// ErrSequenceConflict is returned by appendEvent when (workflowId, sequence)
// already exists (spec §6 "enforces (workflowId, sequence) uniqueness").
var ErrSequenceConflict = errors.New("store: sequence conflict")

// ErrNotFound is returned by getLatestCheckpoint-style lookups that find
// nothing for the given workflowId (a nil, nil return is also acceptable
// per the Go convention used throughout this package; ErrNotFound exists
// for callers that prefer to branch on an error).
var ErrNotFound = errors.New("store: not found")

// WorkflowStore is the sole external storage contract (spec §6): an
// append-only event log, checkpoint snapshots, and an active-workflow
// index. Every method must be safe for concurrent use, also within one
// workflow: the durable engine appends a live signal's event from the
// signalling goroutine while the workflow's own goroutine may be appending.
type WorkflowStore interface {
	// AppendEvent durably persists event for workflowID, atomically
	// enforcing (workflowID, event.Sequence) uniqueness. When event is the
	// first one ever appended for workflowID and its Type is
	// EventWorkflowStarted, the workflow is registered as active.
	AppendEvent(ctx context.Context, workflowID string, event Event) error

	// GetEvents returns every event for workflowID with Sequence >
	// afterSequence, ordered by Sequence ascending.
	GetEvents(ctx context.Context, workflowID string, afterSequence int64) ([]Event, error)

	// SaveCheckpoint persists cp, overwriting any prior checkpoint for the
	// same WorkflowID.
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error

	// GetLatestCheckpoint returns the most recently saved checkpoint for
	// workflowID, or (nil, nil) if none exists.
	GetLatestCheckpoint(ctx context.Context, workflowID string) (*Checkpoint, error)

	// ListActiveWorkflows returns every workflow not yet marked completed.
	ListActiveWorkflows(ctx context.Context) ([]ActiveWorkflowInfo, error)

	// MarkCompleted removes workflowID from the active set.
	MarkCompleted(ctx context.Context, workflowID string) error
}
