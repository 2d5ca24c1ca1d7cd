// Package redisstore implements store.WorkflowStore on top of Redis,
// grounded on spec §11's guidance: event log as a Redis Stream (XADD per
// append, XRANGE to read forward), checkpoints as a Redis hash keyed by
// workflow, and the active set as a Redis set. Sequence uniqueness is
// enforced with a Lua-free check-then-add guarded by a per-workflow key
// lock substitute: a WATCH/MULTI transaction on the stream key, inside which
// the existing entries are scanned for the sequence before XADD.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/flowforge/durable/store"
)

const (
	streamKeyPrefix     = "durable:events:"
	checkpointKeyPrefix = "durable:checkpoint:"
	activeSetKey        = "durable:active"
)

// Store implements store.WorkflowStore against a Redis server.
type Store struct {
	rdb *redis.Client
}

// New returns a Store backed by rdb.
func New(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func streamKey(workflowID string) string     { return streamKeyPrefix + workflowID }
func checkpointKey(workflowID string) string { return checkpointKeyPrefix + workflowID }

func (s *Store) AppendEvent(ctx context.Context, workflowID string, event store.Event) error {
	key := streamKey(workflowID)

	var appendErr error
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		entries, err := tx.XRange(ctx, key, "-", "+").Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("redisstore: xrange: %w", err)
		}
		for _, e := range entries {
			if seqField, ok := e.Values["sequence"]; ok {
				if seq, _ := strconv.ParseInt(fmt.Sprint(seqField), 10, 64); seq == event.Sequence {
					appendErr = store.ErrSequenceConflict
					return nil
				}
			}
		}

		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("redisstore: marshal payload: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: key,
				Values: map[string]any{
					"type":      string(event.Type),
					"sequence":  event.Sequence,
					"timestamp": event.Timestamp,
					"payload":   payload,
				},
			})
			if event.Type == store.EventWorkflowStarted {
				workflowType, _ := event.Payload["workflowType"].(string)
				pipe.HSet(ctx, checkpointKey(workflowID), "workflowType", workflowType)
				pipe.SAdd(ctx, activeSetKey, workflowID)
			}
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("redisstore: append event: %w", err)
	}
	return appendErr
}

func (s *Store) GetEvents(ctx context.Context, workflowID string, afterSequence int64) ([]store.Event, error) {
	entries, err := s.rdb.XRange(ctx, streamKey(workflowID), "-", "+").Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redisstore: xrange: %w", err)
	}

	var out []store.Event
	for _, e := range entries {
		seq, _ := strconv.ParseInt(fmt.Sprint(e.Values["sequence"]), 10, 64)
		if seq <= afterSequence {
			continue
		}
		ts, _ := strconv.ParseInt(fmt.Sprint(e.Values["timestamp"]), 10, 64)
		var payload map[string]any
		if raw, ok := e.Values["payload"].(string); ok {
			_ = json.Unmarshal([]byte(raw), &payload)
		}
		out = append(out, store.Event{
			Type:      store.EventType(fmt.Sprint(e.Values["type"])),
			Sequence:  seq,
			Timestamp: ts,
			Payload:   payload,
		})
	}
	return out, nil
}

func (s *Store) SaveCheckpoint(ctx context.Context, cp store.Checkpoint) error {
	ctxJSON, err := json.Marshal(cp.Context)
	if err != nil {
		return fmt.Errorf("redisstore: marshal checkpoint context: %w", err)
	}
	steps, err := json.Marshal(cp.CompletedSteps)
	if err != nil {
		return fmt.Errorf("redisstore: marshal completed steps: %w", err)
	}

	err = s.rdb.HSet(ctx, checkpointKey(cp.WorkflowID), map[string]any{
		"workflowType":     cp.WorkflowType,
		"sequence":         cp.Sequence,
		"context":          ctxJSON,
		"status":           string(cp.Status),
		"completedSteps":   steps,
		"conditionCounter": cp.ConditionCounter,
		"sleepCounter":     cp.SleepCounter,
		"createdAt":        cp.CreatedAt,
	}).Err()
	if err != nil {
		return fmt.Errorf("redisstore: save checkpoint: %w", err)
	}
	return nil
}

func (s *Store) GetLatestCheckpoint(ctx context.Context, workflowID string) (*store.Checkpoint, error) {
	fields, err := s.rdb.HGetAll(ctx, checkpointKey(workflowID)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redisstore: hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	seq, _ := strconv.ParseInt(fields["sequence"], 10, 64)
	if _, ok := fields["status"]; !ok {
		return nil, nil
	}
	var ctxMap map[string]any
	_ = json.Unmarshal([]byte(fields["context"]), &ctxMap)
	var steps []string
	_ = json.Unmarshal([]byte(fields["completedSteps"]), &steps)
	conditionCounter, _ := strconv.Atoi(fields["conditionCounter"])
	sleepCounter, _ := strconv.Atoi(fields["sleepCounter"])
	createdAt, _ := strconv.ParseInt(fields["createdAt"], 10, 64)

	return &store.Checkpoint{
		WorkflowID: workflowID, WorkflowType: fields["workflowType"], Sequence: seq,
		Context: ctxMap, Status: store.CheckpointStatus(fields["status"]), CompletedSteps: steps,
		ConditionCounter: conditionCounter, SleepCounter: sleepCounter, CreatedAt: createdAt,
	}, nil
}

func (s *Store) ListActiveWorkflows(ctx context.Context) ([]store.ActiveWorkflowInfo, error) {
	ids, err := s.rdb.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: smembers: %w", err)
	}
	out := make([]store.ActiveWorkflowInfo, 0, len(ids))
	for _, id := range ids {
		workflowType, err := s.rdb.HGet(ctx, checkpointKey(id), "workflowType").Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("redisstore: hget workflowType: %w", err)
		}
		out = append(out, store.ActiveWorkflowInfo{WorkflowID: id, WorkflowType: workflowType})
	}
	return out, nil
}

func (s *Store) MarkCompleted(ctx context.Context, workflowID string) error {
	if err := s.rdb.SRem(ctx, activeSetKey, workflowID).Err(); err != nil {
		return fmt.Errorf("redisstore: srem: %w", err)
	}
	return nil
}
