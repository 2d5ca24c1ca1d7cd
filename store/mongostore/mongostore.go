// Package mongostore implements store.WorkflowStore on top of MongoDB,
// grounded on the teacher's features/runlog/mongo/clients/mongo client:
// an events collection with a unique (workflowId, sequence) index, plus an
// upserted-by-workflowId checkpoints collection and an active-workflow
// filter. Demonstrates the WorkflowStore contract is storage-agnostic.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/flowforge/durable/store"
)

const (
	defaultEventsCollection      = "workflow_events"
	defaultCheckpointsCollection = "workflow_checkpoints"
	defaultTimeout               = 5 * time.Second
)

// Options configures Store.
type Options struct {
	Client                *mongodriver.Client
	Database              string
	EventsCollection      string
	CheckpointsCollection string
	Timeout               time.Duration
}

// Store implements store.WorkflowStore against a MongoDB database.
type Store struct {
	events      *mongodriver.Collection
	checkpoints *mongodriver.Collection
	timeout     time.Duration
}

type eventDocument struct {
	WorkflowID string         `bson:"workflow_id"`
	Type       string         `bson:"type"`
	Sequence   int64          `bson:"sequence"`
	Timestamp  int64          `bson:"timestamp"`
	Payload    map[string]any `bson:"payload"`
}

type checkpointDocument struct {
	WorkflowID       string         `bson:"workflow_id"`
	WorkflowType     string         `bson:"workflow_type"`
	Sequence         int64          `bson:"sequence"`
	Context          map[string]any `bson:"context"`
	Status           string         `bson:"status"`
	CompletedSteps   []string       `bson:"completed_steps"`
	ConditionCounter int            `bson:"condition_counter"`
	SleepCounter     int            `bson:"sleep_counter"`
	CreatedAt        int64          `bson:"created_at"`
	Active           bool           `bson:"active"`
}

// New returns a Store backed by opts.Client, ensuring the unique
// (workflow_id, sequence) index on the events collection exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongostore: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("mongostore: database name is required")
	}
	eventsColl := opts.EventsCollection
	if eventsColl == "" {
		eventsColl = defaultEventsCollection
	}
	checkpointsColl := opts.CheckpointsCollection
	if checkpointsColl == "" {
		checkpointsColl = defaultCheckpointsCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	db := opts.Client.Database(opts.Database)
	events := db.Collection(eventsColl)
	checkpoints := db.Collection(checkpointsColl)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := events.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "workflow_id", Value: 1}, {Key: "sequence", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("mongostore: create index: %w", err)
	}

	return &Store{events: events, checkpoints: checkpoints, timeout: timeout}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) AppendEvent(ctx context.Context, workflowID string, event store.Event) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := eventDocument{
		WorkflowID: workflowID,
		Type:       string(event.Type),
		Sequence:   event.Sequence,
		Timestamp:  event.Timestamp,
		Payload:    event.Payload,
	}
	if _, err := s.events.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return store.ErrSequenceConflict
		}
		return fmt.Errorf("mongostore: append event: %w", err)
	}

	if event.Type == store.EventWorkflowStarted {
		workflowType, _ := event.Payload["workflowType"].(string)
		_, err := s.checkpoints.UpdateOne(ctx,
			bson.D{{Key: "workflow_id", Value: workflowID}},
			bson.D{{Key: "$setOnInsert", Value: checkpointDocument{
				WorkflowID: workflowID, WorkflowType: workflowType, Status: string(store.CheckpointRunning), Active: true,
			}}},
			options.UpdateOne().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("mongostore: register active: %w", err)
		}
	}
	return nil
}

func (s *Store) GetEvents(ctx context.Context, workflowID string, afterSequence int64) ([]store.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.events.Find(ctx,
		bson.D{{Key: "workflow_id", Value: workflowID}, {Key: "sequence", Value: bson.D{{Key: "$gt", Value: afterSequence}}}},
		options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongostore: get events: %w", err)
	}
	defer cur.Close(ctx)

	var docs []eventDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongostore: decode events: %w", err)
	}
	out := make([]store.Event, len(docs))
	for i, d := range docs {
		out[i] = store.Event{Type: store.EventType(d.Type), Sequence: d.Sequence, Timestamp: d.Timestamp, Payload: d.Payload}
	}
	return out, nil
}

func (s *Store) SaveCheckpoint(ctx context.Context, cp store.Checkpoint) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := checkpointDocument{
		WorkflowID: cp.WorkflowID, WorkflowType: cp.WorkflowType, Sequence: cp.Sequence,
		Context: cp.Context, Status: string(cp.Status), CompletedSteps: cp.CompletedSteps,
		ConditionCounter: cp.ConditionCounter, SleepCounter: cp.SleepCounter, CreatedAt: cp.CreatedAt,
		Active: cp.Status == store.CheckpointRunning,
	}
	_, err := s.checkpoints.UpdateOne(ctx,
		bson.D{{Key: "workflow_id", Value: cp.WorkflowID}},
		bson.D{{Key: "$set", Value: doc}},
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongostore: save checkpoint: %w", err)
	}
	return nil
}

func (s *Store) GetLatestCheckpoint(ctx context.Context, workflowID string) (*store.Checkpoint, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc checkpointDocument
	err := s.checkpoints.FindOne(ctx, bson.D{{Key: "workflow_id", Value: workflowID}}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: get checkpoint: %w", err)
	}
	if doc.Sequence == 0 && doc.CreatedAt == 0 {
		return nil, nil
	}
	return &store.Checkpoint{
		WorkflowID: doc.WorkflowID, WorkflowType: doc.WorkflowType, Sequence: doc.Sequence,
		Context: doc.Context, Status: store.CheckpointStatus(doc.Status), CompletedSteps: doc.CompletedSteps,
		ConditionCounter: doc.ConditionCounter, SleepCounter: doc.SleepCounter, CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *Store) ListActiveWorkflows(ctx context.Context) ([]store.ActiveWorkflowInfo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.checkpoints.Find(ctx, bson.D{{Key: "active", Value: true}})
	if err != nil {
		return nil, fmt.Errorf("mongostore: list active: %w", err)
	}
	defer cur.Close(ctx)

	var docs []checkpointDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongostore: decode active: %w", err)
	}
	out := make([]store.ActiveWorkflowInfo, len(docs))
	for i, d := range docs {
		out[i] = store.ActiveWorkflowInfo{WorkflowID: d.WorkflowID, WorkflowType: d.WorkflowType}
	}
	return out, nil
}

func (s *Store) MarkCompleted(ctx context.Context, workflowID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.checkpoints.UpdateOne(ctx,
		bson.D{{Key: "workflow_id", Value: workflowID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "active", Value: false}}}})
	if err != nil {
		return fmt.Errorf("mongostore: mark completed: %w", err)
	}
	return nil
}
