package task

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/uuidgen"
	"github.com/flowforge/durable/wcontext"
	"github.com/flowforge/durable/werrors"
)

// Options carries the optional caller-provided Context/Chain of spec §4.4
// step 1 ("install optional caller-provided Context/Chain").
type Options struct {
	Context *wcontext.Context
	Chain   *chain.Chain
}

// Execute runs one invocation of def and never returns a business failure
// as a Go error: skip/fail/validation/unexpected-exception outcomes are all
// encoded in the returned Result (spec §4.4, "execute... never throws for
// business failures").
func Execute(def *Definition, args map[string]any, opts Options) *chain.Result {
	result, _ := run(def, args, opts)
	return result
}

// ExecuteStrict behaves like Execute but returns a *werrors.Fault when the
// resulting status is in def.Settings.TaskBreakpoints (spec §4.4:
// "executeStrict... throws a Fault... when the resulting status is in the
// task's breakpoints set").
func ExecuteStrict(def *Definition, args map[string]any, opts Options) (*chain.Result, error) {
	result, _ := run(def, args, opts)
	breakpoints := def.Settings.TaskBreakpoints
	if len(breakpoints) == 0 {
		breakpoints = DefaultTaskBreakpoints
	}
	for _, bp := range breakpoints {
		if result.Status() == bp {
			reason, _ := result.Reason()
			f := &werrors.Fault{Status: result.Status(), Reason: reason, Metadata: result.Metadata(), Cause: result.Cause()}
			return result, f
		}
	}
	return result, nil
}

func run(def *Definition, args map[string]any, opts Options) (*chain.Result, error) {
	ctx := opts.Context
	if ctx == nil {
		ctx = wcontext.New()
	}
	ch := opts.Chain
	if ch == nil {
		ch = chain.New()
	}

	index := ch.NextIndex() // step 2

	if args != nil {
		ctx.MergeMap(args) // step 3
	}

	inst := &Instance{
		ID:        uuidgen.Default(),
		Def:       def,
		Ctx:       ctx,
		Chn:       ch,
		Errs:      NewErrorCollection(),
		values:    make(map[string]any),
		index:     index,
		startedAt: time.Now(),
	}

	if err := bindAttributes(inst, def.Attributes, args); err != nil { // step 4
		result := buildResult(inst, chain.StateInterrupted, chain.StatusFailed,
			fmt.Sprintf("[ConfigurationError] %s", err), err, nil)
		ch.AddResult(result)
		return result, nil
	}

	mws := composedMiddlewares(def)
	result := mws(inst) // steps 5-10 happen inside core, wrapped by middleware
	ch.AddResult(result)
	return result, nil
}

func composedMiddlewares(def *Definition) NextFunc {
	all := make([]Middleware, 0, len(Middlewares.All())+len(def.Middlewares))
	all = append(all, Middlewares.All()...)
	all = append(all, def.Middlewares...)

	next := coreExecute
	for i := len(all) - 1; i >= 0; i-- {
		mw := all[i]
		captured := next
		next = func(inst *Instance) *chain.Result {
			r, _ := mw.Call(inst, func(i *Instance) (*chain.Result, error) { return captured(i), nil })
			return r
		}
	}
	return func(inst *Instance) (*chain.Result, error) { return next(inst), nil }
}

// coreExecute implements spec §4.4 step 6 through step 10 for one Instance.
func coreExecute(inst *Instance) *chain.Result {
	if err := runCallbacks(inst, BeforeValidation); err != nil {
		return haltResult(inst, err)
	}

	validateInstance(inst)
	if !inst.Errs.Empty() {
		return finish(inst, chain.StateInterrupted, chain.StatusFailed, "Invalid",
			nil, map[string]any{"errors": map[string]any{
				"fullMessage": inst.Errs.FullMessage(),
				"messages":    inst.Errs.Messages(),
			}})
	}

	if err := runCallbacks(inst, BeforeExecution); err != nil {
		return haltResult(inst, err)
	}

	if err := runWorkWithRetry(inst); err != nil {
		return haltResult(inst, err)
	}

	return finish(inst, chain.StateComplete, chain.StatusSuccess, "", nil, nil)
}

// validateInstance runs the declarative validators (spec §4.4 step 6b) over
// every attribute bound during step 4.
func validateInstance(inst *Instance) {
	for _, b := range inst.bindings {
		validateValue(b.def, b.value, b.present, inst.Errs)
	}
}

// haltResult classifies an error returned from a callback or work() per
// spec §4.4 step 7 / §7 items 2-3 and finalizes the Result.
func haltResult(inst *Instance, err error) *chain.Result {
	var fault *werrors.Fault
	if errors.As(err, &fault) {
		result := finish(inst, chain.StateInterrupted, fault.Status, fault.Reason, fault.Cause, fault.Metadata)
		if fault.CausedFailure != nil || fault.ThrewFailure != nil {
			result.SetPropagation(fault.CausedFailure, fault.ThrewFailure)
		}
		return result
	}
	reportException(err)
	reason := fmt.Sprintf("[%s] %s", typeName(err), err.Error())
	return finish(inst, chain.StateInterrupted, chain.StatusFailed, reason, err, nil)
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return "error"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// finish runs rollback (step 8) and lifecycle callbacks (step 9), then
// builds the final Result (step 10).
func finish(inst *Instance, state chain.State, status chain.Status, reason string, cause error, metadata map[string]any) *chain.Result {
	inst.rolledBack = maybeRollback(inst, status)

	result := buildResult(inst, state, status, reason, cause, metadata)

	runLifecycleCallbacks(inst, result)
	return result
}

// maybeRollback invokes def.Rollback when status is in settings.RollbackOn
// (default ["failed"]). Rollback errors are swallowed (spec §4.4 step 8, §7
// item 4); the primary Result is unchanged either way.
func maybeRollback(inst *Instance, status chain.Status) bool {
	if inst.Def.Rollback == nil {
		return false
	}
	rollbackOn := inst.Def.Settings.RollbackOn
	if len(rollbackOn) == 0 {
		rollbackOn = DefaultRollbackOn
	}
	if len(rollbackOn) == 0 {
		rollbackOn = []chain.Status{chain.StatusFailed}
	}
	match := false
	for _, s := range rollbackOn {
		if s == status {
			match = true
			break
		}
	}
	if !match {
		return false
	}
	func() {
		defer func() { _ = recover() }()
		_ = inst.Def.Rollback(inst)
	}()
	return true
}

func buildResult(inst *Instance, state chain.State, status chain.Status, reason string, cause error, metadata map[string]any) *chain.Result {
	taskInfo := chain.TaskInfo{ID: inst.ID, Name: inst.Def.Name}
	return chain.NewResult(chain.Params{
		Task:       taskInfo,
		Context:    inst.Ctx,
		Chain:      inst.Chn,
		Index:      inst.index,
		State:      state,
		Status:     status,
		Reason:     reason,
		Cause:      cause,
		Metadata:   metadata,
		Retries:    inst.retries,
		RolledBack: inst.rolledBack,
	})
}
