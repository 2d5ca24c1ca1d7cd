// Package signaling implements the Messaging (C7), Condition (C8), and
// Workflow Handle (C9) primitives of spec §4.6-§4.8: typed Signal/Query
// definitions, a per-workflow Mailbox that buffers signals ahead of handler
// registration and serializes all mutation onto one logical owner, and the
// external Handle used to drive a running interactive workflow.
package signaling

// Signal is a branded, name-identified definition of a fire-and-forget
// message (spec §3 "Signal/Query definition", §9: "concrete generic
// wrappers Signal<Args>{name}... identity by name, type parameter for
// handler compatibility only").
type Signal[Args any] struct {
	name string
}

// DefineSignal returns a Signal identified by name.
func DefineSignal[Args any](name string) Signal[Args] { return Signal[Args]{name: name} }

// Name returns the signal's identity.
func (s Signal[Args]) Name() string { return s.name }

// Query is a branded, name-identified definition of a synchronous read.
type Query[R, Args any] struct {
	name string
}

// DefineQuery returns a Query identified by name.
func DefineQuery[R, Args any](name string) Query[R, Args] { return Query[R, Args]{name: name} }

// Name returns the query's identity.
func (q Query[R, Args]) Name() string { return q.name }
