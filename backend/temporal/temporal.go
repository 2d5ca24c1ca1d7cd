// Package temporal adapts backend.Engine onto the Temporal Go SDK, grounded
// on the teacher's runtime/agent/engine/temporal adapter: one client, one
// worker per task queue, OTEL instrumentation wired in by default. Step
// maps onto workflow.SideEffect (run once, replay the recorded value),
// Condition onto workflow.Await/workflow.AwaitWithTimeout, Sleep onto
// workflow.Sleep, and Signal onto workflow.GetSignalChannel.
package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/flowforge/durable/backend"
	"github.com/flowforge/durable/telemetry"
)

// Options configures the Temporal engine adapter.
type Options struct {
	// Client is a pre-configured Temporal client. If nil, ClientOptions is
	// used to dial one lazily on first use.
	Client client.Client

	// ClientOptions dials a client when Client is nil.
	ClientOptions client.Options

	// DefaultTaskQueue is used when a WorkflowDefinition or
	// WorkflowStartRequest omits a queue.
	DefaultTaskQueue string

	// DisableWorkerAutoStart prevents the engine from starting a task
	// queue's worker the first time a workflow targeting it is registered;
	// callers must call Engine.StartWorkers themselves.
	DisableWorkerAutoStart bool

	// Logger is kept on the Engine's options (the teacher's
	// telemetry.Logger surface, not Temporal's own). It is not handed to
	// the Temporal client or to any worker.
	Logger telemetry.Logger
}

// Engine adapts backend.Engine onto a Temporal client plus one worker per
// task queue.
type Engine struct {
	opts   Options
	mu     sync.Mutex
	client client.Client
	owns   bool
	queues map[string]worker.Worker
}

// NewEngine constructs an Engine. The Temporal client is dialed lazily on
// first RegisterWorkflow/StartWorkflow call when opts.Client is nil.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts, queues: make(map[string]worker.Worker)}
}

func (e *Engine) ensureClient() (client.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	if e.opts.Client != nil {
		e.client = e.opts.Client
		return e.client, nil
	}

	opts := e.opts.ClientOptions
	tracer, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{})
	if err != nil {
		return nil, fmt.Errorf("backend/temporal: build otel interceptor: %w", err)
	}
	opts.Interceptors = append(opts.Interceptors, tracer)

	c, err := client.Dial(opts)
	if err != nil {
		return nil, fmt.Errorf("backend/temporal: dial client: %w", err)
	}
	e.client = c
	e.owns = true
	return c, nil
}

func (e *Engine) workerFor(queue string) worker.Worker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.queues[queue]; ok {
		return w
	}
	w := worker.New(e.client, queue, worker.Options{})
	e.queues[queue] = w
	return w
}

// RegisterWorkflow implements backend.Engine.
func (e *Engine) RegisterWorkflow(ctx context.Context, def backend.WorkflowDefinition) error {
	if _, err := e.ensureClient(); err != nil {
		return err
	}
	queue := def.TaskQueue
	if queue == "" {
		queue = e.opts.DefaultTaskQueue
	}
	w := e.workerFor(queue)
	w.RegisterWorkflowWithOptions(wrapWorkflow(def.Handler), workflow.RegisterOptions{Name: def.Name})
	if !e.opts.DisableWorkerAutoStart {
		return e.startWorker(queue)
	}
	return nil
}

func (e *Engine) startWorker(queue string) error {
	e.mu.Lock()
	w, ok := e.queues[queue]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("backend/temporal: no worker registered for queue %q", queue)
	}
	return w.Start()
}

// StartWorkers starts the worker of every task queue registered so far. It
// is the start path for engines built with DisableWorkerAutoStart.
func (e *Engine) StartWorkers() error {
	e.mu.Lock()
	queues := make([]string, 0, len(e.queues))
	for q := range e.queues {
		queues = append(queues, q)
	}
	e.mu.Unlock()
	for _, q := range queues {
		if err := e.startWorker(q); err != nil {
			return err
		}
	}
	return nil
}

// StartWorkflow implements backend.Engine.
func (e *Engine) StartWorkflow(ctx context.Context, req backend.WorkflowStartRequest) (backend.WorkflowHandle, error) {
	c, err := e.ensureClient()
	if err != nil {
		return nil, err
	}
	queue := req.TaskQueue
	if queue == "" {
		queue = e.opts.DefaultTaskQueue
	}
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        req.ID,
		TaskQueue: queue,
	}, req.Workflow, req.Args)
	if err != nil {
		return nil, fmt.Errorf("backend/temporal: start workflow %q: %w", req.Workflow, err)
	}
	return &workflowHandle{client: c, run: run}, nil
}

// wrapWorkflow adapts a backend.WorkflowFunc into a Temporal workflow
// function, constructing a workflowContext per invocation (spec §4.9's
// step/condition/sleep surface, here delegated to Temporal primitives).
func wrapWorkflow(fn backend.WorkflowFunc) interface{} {
	return func(ctx workflow.Context, args map[string]any) (any, error) {
		wctx := &workflowContext{ctx: ctx, base: context.Background()}
		return fn(wctx, args)
	}
}

type workflowHandle struct {
	client client.Client
	run    client.WorkflowRun
}

func (h *workflowHandle) Wait(ctx context.Context, result any) error {
	return h.run.Get(ctx, result)
}

func (h *workflowHandle) Signal(ctx context.Context, name string, payload any) error {
	return h.client.SignalWorkflow(ctx, h.run.GetID(), h.run.GetRunID(), name, payload)
}

func (h *workflowHandle) Cancel(ctx context.Context) error {
	return h.client.CancelWorkflow(ctx, h.run.GetID(), h.run.GetRunID())
}

// workflowContext implements backend.WorkflowContext over workflow.Context.
type workflowContext struct {
	ctx  workflow.Context
	base context.Context
}

func (w *workflowContext) Context() context.Context { return w.base }
func (w *workflowContext) WorkflowID() string        { return workflow.GetInfo(w.ctx).WorkflowExecution.ID }

// Step runs fn exactly once for the life of the workflow via
// workflow.SideEffect: Temporal records its return value in workflow
// history and replays the recorded value instead of re-invoking fn, the
// same at-most-once guarantee this module's own durable.Step gives against
// its event log.
func (w *workflowContext) Step(name string, fn func(ctx context.Context) (any, error)) (any, error) {
	var stepErr error
	encoded := workflow.SideEffect(w.ctx, func(workflow.Context) interface{} {
		result, err := fn(w.base)
		stepErr = err
		return sideEffectResult{Result: result, Err: errString(err)}
	})

	var sr sideEffectResult
	if err := encoded.Get(&sr); err != nil {
		return nil, fmt.Errorf("backend/temporal: step %q: %w", name, err)
	}
	if sr.Err != "" {
		return nil, fmt.Errorf("backend/temporal: step %q: %s", name, sr.Err)
	}
	_ = stepErr
	return sr.Result, nil
}

type sideEffectResult struct {
	Result any
	Err    string
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (w *workflowContext) Sleep(d time.Duration) error {
	return workflow.Sleep(w.ctx, d)
}

func (w *workflowContext) Condition(predicate func() (bool, error), timeout time.Duration) (bool, error) {
	var predErr error
	wrapped := func() bool {
		ok, err := predicate()
		if err != nil {
			predErr = err
			return true // unblock Await so the error can surface below
		}
		return ok
	}

	if timeout <= 0 {
		if err := workflow.Await(w.ctx, wrapped); err != nil {
			return false, err
		}
		return predErr == nil, predErr
	}

	ok, err := workflow.AwaitWithTimeout(w.ctx, timeout, wrapped)
	if err != nil {
		return false, err
	}
	if predErr != nil {
		return false, predErr
	}
	return ok, nil
}

func (w *workflowContext) Signal(name string) backend.SignalReceiver {
	return &signalReceiver{ctx: w.ctx, ch: workflow.GetSignalChannel(w.ctx, name)}
}

type signalReceiver struct {
	ctx workflow.Context
	ch  workflow.ReceiveChannel
}

func (r *signalReceiver) Receive(ctx context.Context, dest any) error {
	r.ch.Receive(r.ctx, dest)
	return nil
}

func (r *signalReceiver) ReceiveAsync(dest any) bool {
	return r.ch.ReceiveAsync(dest)
}
