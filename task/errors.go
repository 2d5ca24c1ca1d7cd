package task

import (
	"strings"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/werrors"
)

// ErrorCollection accumulates attribute validation errors (spec §3: "an
// ErrorCollection (attribute→messages)").
type ErrorCollection struct {
	byAttribute map[string][]string
	order       []string
}

// NewErrorCollection returns an empty collection.
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{byAttribute: make(map[string][]string)}
}

// Add records msg against attribute.
func (e *ErrorCollection) Add(attribute, msg string) {
	if _, ok := e.byAttribute[attribute]; !ok {
		e.order = append(e.order, attribute)
	}
	e.byAttribute[attribute] = append(e.byAttribute[attribute], msg)
}

// Empty reports whether no errors were recorded.
func (e *ErrorCollection) Empty() bool { return len(e.order) == 0 }

// Messages returns the attribute→messages map (spec §4.4 step 6b:
// "metadata.errors={fullMessage, messages}").
func (e *ErrorCollection) Messages() map[string][]string {
	out := make(map[string][]string, len(e.byAttribute))
	for k, v := range e.byAttribute {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// FullMessage renders every recorded error as one human-readable string,
// attributes in first-added order, matching the kind of summary message an
// operator sees in logs.
func (e *ErrorCollection) FullMessage() string {
	var parts []string
	for _, a := range e.order {
		for _, m := range e.byAttribute[a] {
			parts = append(parts, a+" "+m)
		}
	}
	return strings.Join(parts, ", ")
}

// Skip halts the task with StatusSkipped (spec §4.4 step 7, §4.8/§6
// "skip(reason?, metadata?)"). Task bodies call this and return its result
// directly: `return inst.Skip("reason", nil)`.
func (inst *Instance) Skip(reason string, metadata map[string]any) error {
	return werrors.SkipFault(reason, metadata)
}

// Fail halts the task with StatusFailed (spec §6 "fail(reason?, metadata?)").
func (inst *Instance) Fail(reason string, metadata map[string]any) error {
	return werrors.FailFault(reason, metadata)
}

// Throw re-raises a child Result's skipped/failed status onto the current
// task (spec §6 "throw(childResult, metadata?)"). The child's reason and
// cause are preserved; metadata is merged with the caller-supplied bag
// (caller-supplied keys win on conflict, spec §4.4 step 7).
func (inst *Instance) Throw(child *chain.Result, metadata map[string]any) error {
	reason, _ := child.Reason()
	merged := mergeMetadata(child.Metadata(), metadata)
	var f *werrors.Fault
	if child.Skipped() {
		f = werrors.SkipFault(reason, merged)
	} else {
		f = werrors.FailFault(reason, merged)
	}
	f.Cause = child.Cause()
	f.ThrewFailure = child
	return f
}

func mergeMetadata(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
