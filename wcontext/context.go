// Package wcontext implements the Context primitive (spec §3, §4.1): an
// insertion-ordered, string-keyed map shared across a single execution.
//
// The source this engine is modeled on used a proxy object so callers could
// write ctx.foo as sugar for ctx.Get("foo"). Go has no such ergonomic; the
// abstract requirement — "string-keyed insertion-ordered map with dynamic
// value types" — is served here with an explicit Get/Set/Has/Delete API
// (spec §9 Design Notes).
package wcontext

import "time"

// Context is an insertion-ordered key/value store. The zero value is not
// usable; construct with New.
type Context struct {
	order  []string
	values map[string]any
}

// New returns an empty Context.
func New() *Context {
	return &Context{values: make(map[string]any)}
}

// FromMap builds a Context from a plain map, in the iteration order Go gives
// map ranges (undefined), so the resulting key order is not defined.
func FromMap(m map[string]any) *Context {
	c := New()
	for k, v := range m {
		c.Set(k, v)
	}
	return c
}

// Get returns the value stored under key and whether it was present.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetOr returns the value stored under key, or def if absent.
func (c *Context) GetOr(key string, def any) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Set stores value under key, appending key to the insertion order only the
// first time it is set.
func (c *Context) Set(key string, value any) {
	if _, ok := c.values[key]; !ok {
		c.order = append(c.order, key)
	}
	c.values[key] = value
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Delete removes key, if present, from both the value map and the
// insertion-order slice.
func (c *Context) Delete(key string) {
	if _, ok := c.values[key]; !ok {
		return
	}
	delete(c.values, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (c *Context) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Values returns the values in insertion (key) order.
func (c *Context) Values() []any {
	out := make([]any, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.values[k])
	}
	return out
}

// Entry is one key/value pair, used by Entries to preserve order without
// forcing callers through Keys+Get.
type Entry struct {
	Key   string
	Value any
}

// Entries returns all key/value pairs in insertion order.
func (c *Context) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, Entry{Key: k, Value: c.values[k]})
	}
	return out
}

// Size returns the number of stored keys.
func (c *Context) Size() int { return len(c.order) }

// Merge copies entries from other into c, preserving other's insertion
// order for newly introduced keys. A nil value in other is skipped (spec
// §4.1: "undefined values in a merge payload are skipped"); a key explicitly
// present but mapped to Go nil is treated as "undefined" too, since wcontext
// has no separate explicit-null sentinel distinct from nil interface values.
func (c *Context) Merge(other *Context) {
	if other == nil {
		return
	}
	for _, e := range other.Entries() {
		if e.Value == nil {
			continue
		}
		c.Set(e.Key, e.Value)
	}
}

// MergeMap merges a plain map into c using the same "nil is skip" rule as
// Merge. Iteration order over m is Go's undefined map order.
func (c *Context) MergeMap(m map[string]any) {
	for k, v := range m {
		if v == nil {
			continue
		}
		c.Set(k, v)
	}
}

// Clone returns a shallow copy: the key order and top-level value slots are
// independent, but nested mutable values (maps, slices, pointers) are
// shared with the original.
func (c *Context) Clone() *Context {
	clone := &Context{
		order:  make([]string, len(c.order)),
		values: make(map[string]any, len(c.values)),
	}
	copy(clone.order, c.order)
	for k, v := range c.values {
		clone.values[k] = v
	}
	return clone
}

// DeepClone returns a copy where plain maps, slices, and time.Time values are
// recursively duplicated so mutations to the clone never reach the
// original. Other concrete types (custom structs, channels, functions) are
// reference-copied — a documented edge matching spec §4.1.
func (c *Context) DeepClone() *Context {
	clone := &Context{
		order:  make([]string, len(c.order)),
		values: make(map[string]any, len(c.values)),
	}
	copy(clone.order, c.order)
	for k, v := range c.values {
		clone.values[k] = deepCloneValue(v)
	}
	return clone
}

func deepCloneValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = deepCloneValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = deepCloneValue(vv)
		}
		return out
	case map[string]struct{}:
		out := make(map[string]struct{}, len(val))
		for k := range val {
			out[k] = struct{}{}
		}
		return out
	case *Context:
		return val.DeepClone()
	default:
		return v
	}
}

// ToObject returns a plain map snapshot of the Context. Mutating the result
// does not affect the Context.
func (c *Context) ToObject() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
