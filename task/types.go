// Package task implements the attribute schema, process-wide registries,
// and Task engine (spec §2 C4/C5, §4.4). A Task is declared once as a
// *Definition (the Go analogue of the source's static class configuration,
// per spec §9 Design Notes: "prefer explicit definition structs constructed
// once per task type... instances hold a pointer to their definition") and
// invoked many times via Execute/ExecuteStrict, each call producing one
// *Instance and one *chain.Result.
package task

import (
	"regexp"
	"time"

	"github.com/flowforge/durable/chain"
	"github.com/flowforge/durable/telemetry"
	"github.com/flowforge/durable/wcontext"
)

type (
	// WorkFunc is the task body. Returning a non-nil error produced by
	// Instance.Skip/Fail/Throw halts with the corresponding status;
	// returning any other non-nil error is an unexpected exception (spec
	// §4.4 step 7, §7 item 3); returning nil completes successfully.
	WorkFunc func(inst *Instance) error

	// RollbackFunc undoes side effects after a breakpoint-matching failure
	// (spec §4.4 step 8). Its own errors are swallowed.
	RollbackFunc func(inst *Instance) error

	// ValueFunc resolves a dynamic value (default, source) from an
	// Instance.
	ValueFunc func(inst *Instance) (any, error)

	// PredicateFunc resolves a boolean gate (if/unless) from an Instance.
	PredicateFunc func(inst *Instance) (bool, error)

	// AttributeDef declares one attribute per spec §3 "Attribute
	// definition" / §4.4 step 4.
	AttributeDef struct {
		// Name is the attribute's key in Context and in the task's bound
		// value map.
		Name string
		// Required marks the attribute as required once gating (If/Unless)
		// resolves to "applies" and no Default supplies a value.
		Required bool
		// Types lists coercion names tried in order; the first successful
		// coercion wins (spec §3).
		Types []string
		// Default is a static default value used when args, context,
		// source and DefaultFunc resolve no value.
		Default any
		// DefaultFunc resolves a default value dynamically. Takes priority
		// over Default when both are set.
		DefaultFunc ValueFunc
		// Source names a Definition.Methods entry used to resolve the value
		// when no arg/context value is present (spec §3 "source").
		Source string
		// SourceFunc resolves the source value dynamically. Takes priority
		// over Source when both are set.
		SourceFunc ValueFunc

		// Presence requires the coerced value to be non-zero/non-empty.
		Presence bool
		// Absence requires the coerced value to be absent/zero.
		Absence bool
		// Format requires a string value to match the given pattern.
		Format *regexp.Regexp
		// MinLength/MaxLength bound a string or slice value's length.
		MinLength *int
		MaxLength *int
		// Numeric requires the value to be an int, int64, or float64.
		Numeric bool
		// Inclusion requires the value to be one of the given set.
		Inclusion []any
		// Exclusion forbids the value from being one of the given set.
		Exclusion []any

		// If/IfFunc and Unless/UnlessFunc gate whether the attribute
		// applies at all (spec §3 invariant steps 1-2). A string names a
		// Definition.Methods entry; the *Func variants take priority.
		If      string
		IfFunc  PredicateFunc
		Unless     string
		UnlessFunc PredicateFunc

		// Nested declares a nested attribute bag resolved before the
		// parent value is validated (spec §3).
		Nested []*AttributeDef

		// JSONSchema, when set, validates the bound value (which must be
		// JSON-marshalable) against a compiled JSON Schema instead of (or
		// in addition to) Nested — see SPEC_FULL.md §11 domain stack entry
		// for santhosh-tekuri/jsonschema/v6.
		JSONSchema *CompiledSchema

		// CustomValidators names entries in the process-wide Validators
		// registry (spec §6 configuration bag's validators), run after the
		// built-in checks above.
		CustomValidators []string
	}

	// ValidatorFunc is a named custom validator, registered process-wide via
	// the Validators registry and referenced from an AttributeDef by name.
	ValidatorFunc func(name string, v any, present bool, errs *ErrorCollection)

	// Settings mirrors the per-task settings surface of spec §6.
	Settings struct {
		TaskBreakpoints []chain.Status
		LogLevel        string
		Tags            []string
		Retries         int
		RetryOn         []func(error) bool
		RetryJitter     any // number, func(retryCount int) time.Duration, or method name (string)
		RollbackOn      []chain.Status
		Deprecated      bool
		DryRun          bool
	}

	// CallbackType enumerates the eight lifecycle callback hooks plus the
	// two pre-work hooks (spec §4.4 step 9, §6).
	CallbackType string
)

const (
	BeforeValidation CallbackType = "beforeValidation"
	BeforeExecution  CallbackType = "beforeExecution"
	OnComplete       CallbackType = "onComplete"
	OnInterrupted    CallbackType = "onInterrupted"
	OnExecuted       CallbackType = "onExecuted"
	OnSuccess        CallbackType = "onSuccess"
	OnSkipped        CallbackType = "onSkipped"
	OnFailed         CallbackType = "onFailed"
	OnGood           CallbackType = "onGood"
	OnBad            CallbackType = "onBad"
)

// CallbackFunc is a lifecycle callback body (spec §4.4: "a function (task)
// -> void|Promise<void>"). All callbacks are awaited by the engine; in Go
// that simply means it runs synchronously and returns an error.
type CallbackFunc func(inst *Instance) error

// Callback is the object form of a callback ("an object with a call
// method", spec §4.4).
type Callback interface {
	Call(inst *Instance) error
}

// CallbackFuncAdapter adapts a CallbackFunc to the Callback interface.
type CallbackFuncAdapter CallbackFunc

func (f CallbackFuncAdapter) Call(inst *Instance) error { return f(inst) }

// NextFunc is the continuation passed to a Middleware.
type NextFunc func(inst *Instance) (*chain.Result, error)

// Middleware wraps task execution (spec §4.4 step 5, §6). Function and
// object forms are both supported via MiddlewareFuncAdapter.
type Middleware interface {
	Call(inst *Instance, next NextFunc) (*chain.Result, error)
}

// MiddlewareFunc is the function form of Middleware.
type MiddlewareFunc func(inst *Instance, next NextFunc) (*chain.Result, error)

// MiddlewareFuncAdapter adapts a MiddlewareFunc to the Middleware interface.
type MiddlewareFuncAdapter MiddlewareFunc

func (f MiddlewareFuncAdapter) Call(inst *Instance, next NextFunc) (*chain.Result, error) {
	return f(inst, next)
}

// Definition is the static, process-lifetime configuration of one task
// type, analogous to the source's class-level static slots (spec §9).
type Definition struct {
	// Name identifies the task type, used in Result.Task().Name and in log
	// lines.
	Name string

	Attributes []*AttributeDef
	Settings   Settings

	Callbacks   map[CallbackType][]Callback
	Middlewares []Middleware

	// Methods resolves Source/If/Unless/RetryJitter-by-name lookups (spec
	// §9: "method name... on the task"). Registered once per Definition.
	Methods map[string]ValueFunc

	Work     WorkFunc
	Rollback RollbackFunc

	Logger  telemetry.Logger
	Tracer  telemetry.Tracer
	Metrics telemetry.Metrics
}

// Instance is one execution of a Definition: per spec §3 "Task instance" —
// a unique id, a Context reference, a Chain reference, an error collection,
// and transient execution state. It is created per Execute/Start call and
// never shared across executions.
type Instance struct {
	ID    string
	Def   *Definition
	Ctx   *wcontext.Context
	Chn   *chain.Chain
	Errs  *ErrorCollection

	values   map[string]any
	bindings []boundAttr

	index      int
	retries    int
	rolledBack bool
	startedAt  time.Time
}

// Context returns the shared execution Context (spec §6: "this.context").
func (inst *Instance) Context() *wcontext.Context { return inst.Ctx }

// Chain returns the execution-correlation Chain (spec §6: "this.chain").
func (inst *Instance) Chain() *chain.Chain { return inst.Chn }

// Errors returns the attribute error collection (spec §6: "this.errors").
func (inst *Instance) Errors() *ErrorCollection { return inst.Errs }

// Attr returns the bound value of a declared attribute.
func (inst *Instance) Attr(name string) (any, bool) {
	v, ok := inst.values[name]
	return v, ok
}

// SetAttr overrides a bound attribute value; rarely needed outside tests
// and binding itself.
func (inst *Instance) SetAttr(name string, v any) { inst.values[name] = v }

// Retries returns how many retry attempts have been consumed so far.
func (inst *Instance) Retries() int { return inst.retries }
