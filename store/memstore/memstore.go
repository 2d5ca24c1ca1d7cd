// Package memstore implements store.WorkflowStore entirely in process
// memory (spec §12.2: "the default, required-by-spec in-memory
// implementation... so the module works with zero external infra"),
// grounded on the teacher's runtime/agents/memory/inmem package: a mutex
// guarding a plain map, every read returning a defensive copy.
package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/flowforge/durable/store"
)

var errFirstEventMustBeStarted = errors.New("memstore: first event appended for a workflow must be workflow.started")

type workflowRecord struct {
	events       []store.Event
	checkpoint   *store.Checkpoint
	workflowType string
	active       bool
}

// Store is an in-memory, thread-safe store.WorkflowStore. Data does not
// survive process restart.
type Store struct {
	mu        sync.RWMutex
	workflows map[string]*workflowRecord
}

// New returns an empty Store, ready to use.
func New() *Store {
	return &Store{workflows: make(map[string]*workflowRecord)}
}

// AppendEvent implements store.WorkflowStore. Per spec §9's Open Question
// on the in-memory store's active-registration rule, this implementation
// resolves it by enforcing the conservative reading: the first event ever
// appended for a workflowID MUST be store.EventWorkflowStarted, or
// AppendEvent returns errFirstEventMustBeStarted (a memstore-local error,
// distinct from store.ErrSequenceConflict) rather than silently leaving the
// workflow undiscoverable by ListActiveWorkflows.
func (s *Store) AppendEvent(_ context.Context, workflowID string, event store.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.workflows[workflowID]
	if !exists {
		if event.Type != store.EventWorkflowStarted {
			return errFirstEventMustBeStarted
		}
		wfType, _ := event.Payload["workflowType"].(string)
		rec = &workflowRecord{workflowType: wfType, active: true}
		s.workflows[workflowID] = rec
	}

	for _, e := range rec.events {
		if e.Sequence == event.Sequence {
			return store.ErrSequenceConflict
		}
	}

	rec.events = append(rec.events, event)
	return nil
}

func (s *Store) GetEvents(_ context.Context, workflowID string, afterSequence int64) ([]store.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.workflows[workflowID]
	if !ok {
		return nil, nil
	}
	out := make([]store.Event, 0, len(rec.events))
	for _, e := range rec.events {
		if e.Sequence > afterSequence {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) SaveCheckpoint(_ context.Context, cp store.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.workflows[cp.WorkflowID]
	if !ok {
		rec = &workflowRecord{workflowType: cp.WorkflowType, active: true}
		s.workflows[cp.WorkflowID] = rec
	}
	cpCopy := cp
	rec.checkpoint = &cpCopy
	return nil
}

func (s *Store) GetLatestCheckpoint(_ context.Context, workflowID string) (*store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.workflows[workflowID]
	if !ok || rec.checkpoint == nil {
		return nil, nil
	}
	cpCopy := *rec.checkpoint
	return &cpCopy, nil
}

func (s *Store) ListActiveWorkflows(_ context.Context) ([]store.ActiveWorkflowInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.ActiveWorkflowInfo
	for id, rec := range s.workflows {
		if rec.active {
			out = append(out, store.ActiveWorkflowInfo{WorkflowID: id, WorkflowType: rec.workflowType})
		}
	}
	return out, nil
}

func (s *Store) MarkCompleted(_ context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.workflows[workflowID]; ok {
		rec.active = false
	}
	return nil
}
