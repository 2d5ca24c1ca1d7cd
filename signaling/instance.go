package signaling

import (
	"time"

	"github.com/flowforge/durable/duration"
	"github.com/flowforge/durable/task"
	"github.com/flowforge/durable/wcontext"
)

const mailboxContextKey = "__signaling_mailbox"

// Attach stores mb on ctx so every Instance created from ctx (the workflow
// Instance, and any descendant that shares the same Context) can reach it
// via From. Start calls this before the workflow's Instance is constructed.
func Attach(ctx *wcontext.Context, mb *Mailbox) { ctx.Set(mailboxContextKey, mb) }

// From returns the Mailbox attached to inst's Context, or nil if this
// Instance was not started via Start (e.g. a plain pipeline task).
func From(inst *task.Instance) *Mailbox {
	v, ok := inst.Context().Get(mailboxContextKey)
	if !ok {
		return nil
	}
	mb, _ := v.(*Mailbox)
	return mb
}

// SetHandler registers fn as the handler for def, to be called from an
// interactive workflow's work() body (spec §6: "Workflow authoring inside
// an interactive work: setHandler").
func SetHandler[Args any](inst *task.Instance, def Signal[Args], fn func(Args) error) {
	mb := From(inst)
	if mb == nil {
		return
	}
	mb.SetSignalHandler(def.Name(), func(raw []any) error {
		args, _ := raw[0].(Args)
		return fn(args)
	})
}

// SetQueryHandler registers fn as the handler for def.
func SetQueryHandler[R, Args any](inst *task.Instance, def Query[R, Args], fn func(Args) (R, error)) {
	mb := From(inst)
	if mb == nil {
		return
	}
	mb.SetQueryHandler(def.Name(), func(raw []any) (any, error) {
		args, _ := raw[0].(Args)
		return fn(args)
	})
}

// Condition evaluates predicate, waiting (cooperatively) until it becomes
// true or timeout elapses (spec §4.7, §6: "Workflow authoring inside an
// interactive work: condition"). timeout may be nil (no timeout), a
// time.Duration, or anything duration.Parse accepts (a number of ms, or a
// unit string like "100ms", "30s", "5m").
func Condition(inst *task.Instance, predicate Predicate, timeout any) (bool, error) {
	mb := From(inst)
	if mb == nil {
		return predicate()
	}
	d, err := resolveTimeout(timeout)
	if err != nil {
		return false, err
	}
	return mb.Condition(predicate, d)
}

func resolveTimeout(timeout any) (time.Duration, error) {
	if timeout == nil {
		return 0, nil
	}
	return duration.Parse(timeout)
}
