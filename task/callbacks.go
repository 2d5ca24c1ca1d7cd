package task

import "github.com/flowforge/durable/chain"

// runCallbacks runs every callback registered for t against inst, globals
// first in registration order then Definition-local callbacks in
// declaration order (spec §5: "within a type, globals then locals in
// declaration order" — resolving the ambiguity flagged in §9 Design Notes
// in favor of running both sets). The first callback to return an error
// stops the loop; its error is classified by the caller the same as a
// work() exception.
func runCallbacks(inst *Instance, t CallbackType) error {
	for _, cb := range GlobalCallbacks(t) {
		if err := cb.Call(inst); err != nil {
			return err
		}
	}
	for _, cb := range inst.Def.Callbacks[t] {
		if err := cb.Call(inst); err != nil {
			return err
		}
	}
	return nil
}

// runLifecycleCallbacks runs the post-completion hooks in the order fixed
// by spec §4.4 step 9. These run after the Result already exists, so
// individual callback errors are swallowed (best effort; there is no
// remaining Result to attach them to) rather than changing the outcome.
func runLifecycleCallbacks(inst *Instance, result *chain.Result) {
	if result.Complete() {
		runCallbacksSafely(inst, OnComplete)
	} else {
		runCallbacksSafely(inst, OnInterrupted)
	}

	runCallbacksSafely(inst, OnExecuted)

	switch result.Status() {
	case chain.StatusSuccess:
		runCallbacksSafely(inst, OnSuccess)
	case chain.StatusSkipped:
		runCallbacksSafely(inst, OnSkipped)
	case chain.StatusFailed:
		runCallbacksSafely(inst, OnFailed)
	}

	if result.Good() {
		runCallbacksSafely(inst, OnGood)
	}
	if result.Bad() {
		runCallbacksSafely(inst, OnBad)
	}
}

func runCallbacksSafely(inst *Instance, t CallbackType) {
	defer func() { _ = recover() }()
	_ = runCallbacks(inst, t)
}
