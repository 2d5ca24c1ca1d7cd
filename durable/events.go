package durable

import (
	"time"

	"github.com/flowforge/durable/store"
)

func nowMillis() int64 { return time.Now().UnixMilli() }

// jsonNull coerces a nil step result to an explicit JSON null sentinel
// (spec §6 "on write the engine coerces undefined results to a null
// sentinel").
func jsonNull(v any) any {
	if v == nil {
		return map[string]any{"__null__": true}
	}
	return v
}

func unwrapJSONNull(v any) any {
	if m, ok := v.(map[string]any); ok {
		if flag, ok := m["__null__"]; ok && flag == true && len(m) == 1 {
			return nil
		}
	}
	return v
}

func payloadString(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

func deadlineFromPayload(payload map[string]any) time.Time {
	switch v := payload["deadline"].(type) {
	case int64:
		return time.UnixMilli(v)
	case float64:
		return time.UnixMilli(int64(v))
	default:
		return time.Time{}
	}
}

// newEvent builds an Event stamped with sequence and the current wall
// clock, leaving Payload as given.
func newEvent(t store.EventType, sequence int64, payload map[string]any) store.Event {
	return store.Event{Type: t, Sequence: sequence, Timestamp: nowMillis(), Payload: payload}
}
