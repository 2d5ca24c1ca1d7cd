package workflow

import (
	"fmt"
	"sync"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/task"
	"github.com/flowforge/durable/wcontext"
)

// runSequential walks entries in order within inst's shared Context and
// Chain (spec §4.5 "Sequential execution"). It returns the first child
// Result whose status matches its effective breakpoints, or nil if every
// entry ran to a non-breakpoint outcome.
func runSequential(inst *task.Instance, entries []ListEntry, defaultBP []chain.Status) (*chain.Result, error) {
	for _, entry := range entries {
		if entry.Group != nil {
			applies, err := resolveGate(inst, entry.Group.If, entry.Group.IfFunc, entry.Group.Unless, entry.Group.UnlessFunc)
			if err != nil {
				return nil, err
			}
			if !applies {
				continue
			}
			bp := bpOrDefault(entry.Group.Breakpoints, defaultBP)
			halted, err := runGroup(inst, entry.Group, bp)
			if err != nil {
				return nil, err
			}
			if halted != nil {
				return halted, nil
			}
			continue
		}

		if entry.Task == nil {
			continue
		}
		applies, err := resolveGate(inst, entry.If, entry.IfFunc, entry.Unless, entry.UnlessFunc)
		if err != nil {
			return nil, err
		}
		if !applies {
			continue
		}
		bp := bpOrDefault(entry.Breakpoints, defaultBP)
		child := task.Execute(entry.Task, nil, task.Options{Context: inst.Context(), Chain: inst.Chain()})
		if matchesBreakpoint(child.Status(), bp) {
			return child, nil
		}
	}
	return nil, nil
}

// runGroup runs group.Entries per group.Strategy (spec §4.5). For
// Sequential it behaves exactly like runSequential (same Context/Chain).
// For Parallel it fans out a cloned, isolated Context snapshot to every
// child, runs them concurrently, and propagates the first breakpoint match
// in child-list order once all children finish.
func runGroup(inst *task.Instance, group *Group, bp []chain.Status) (*chain.Result, error) {
	if group.Strategy == Parallel {
		return runParallel(inst, group.Entries, bp)
	}
	return runSequential(inst, group.Entries, bp)
}

// runParallel implements spec §4.5 "Parallel execution": each child gets a
// cloned Context initialized from a snapshot of the parent, so no child
// mutation is visible to its siblings or to the parent (P5). Children run
// on their own, per-child Chain (the shared Chain is not safe for
// concurrent NextIndex/AddResult per spec §5); once all finish, their
// Results are appended to the parent Chain in child-list order so the
// workflow's own Chain still reflects the group's outcomes.
func runParallel(inst *task.Instance, entries []ListEntry, bp []chain.Status) (*chain.Result, error) {
	snapshot := inst.Context().ToObject()
	results := make([]*chain.Result, len(entries))
	errs := make([]error, len(entries))

	// Nested groups inside a parallel group's entries are not supported:
	// fan-out needs a per-child Instance to host the cloned Context, and
	// Instance construction is task-package-private. Only plain Task
	// entries fan out; a nested Group entry is skipped.
	var wg sync.WaitGroup
	for i, entry := range entries {
		if entry.Task == nil {
			continue
		}
		i, entry := i, entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			applies, err := resolveGate(inst, entry.If, entry.IfFunc, entry.Unless, entry.UnlessFunc)
			if err != nil {
				errs[i] = err
				return
			}
			if !applies {
				return
			}
			childCtx := wcontext.FromMap(snapshot)
			results[i] = task.Execute(entry.Task, nil, task.Options{Context: childCtx, Chain: chain.New()})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var halted *chain.Result
	for i, r := range results {
		if r == nil {
			continue
		}
		inst.Chain().AddResult(r)
		entryBP := bpOrDefault(entries[i].Breakpoints, bp)
		if halted == nil && matchesBreakpoint(r.Status(), entryBP) {
			halted = r
		}
	}
	if halted != nil {
		return halted, nil
	}
	return nil, nil
}

func bpOrDefault(override, fallback []chain.Status) []chain.Status {
	if len(override) > 0 {
		return override
	}
	return fallback
}

func matchesBreakpoint(status chain.Status, bp []chain.Status) bool {
	for _, s := range bp {
		if s == status {
			return true
		}
	}
	return false
}

// resolveGate evaluates if/unless exactly as spec §4.5 describes: truthy
// if (or absent) AND falsy unless (or absent) ⇒ the entry runs. Method
// names resolve against the enclosing workflow Instance's Methods map.
func resolveGate(inst *task.Instance, ifName string, ifFn task.PredicateFunc, unlessName string, unlessFn task.PredicateFunc) (bool, error) {
	ifOK := true
	switch {
	case ifFn != nil:
		var err error
		ifOK, err = ifFn(inst)
		if err != nil {
			return false, err
		}
	case ifName != "":
		v, err := callMethod(inst, ifName)
		if err != nil {
			return false, err
		}
		ifOK = truthy(v)
	}

	unlessOK := false
	switch {
	case unlessFn != nil:
		var err error
		unlessOK, err = unlessFn(inst)
		if err != nil {
			return false, err
		}
	case unlessName != "":
		v, err := callMethod(inst, unlessName)
		if err != nil {
			return false, err
		}
		unlessOK = truthy(v)
	}

	return ifOK && !unlessOK, nil
}

func callMethod(inst *task.Instance, name string) (any, error) {
	fn, ok := inst.Def.Methods[name]
	if !ok {
		return nil, fmt.Errorf("workflow: no method %q registered for if/unless", name)
	}
	return fn(inst)
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case nil:
		return false
	default:
		return true
	}
}
