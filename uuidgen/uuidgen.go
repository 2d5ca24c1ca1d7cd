// Package uuidgen centralizes the time-ordered identifier scheme used for
// Task, Chain, and Workflow ids (spec §3: "time-ordered UUID"). It is a thin
// wrapper over github.com/google/uuid's UUIDv7 generator so the scheme is
// swappable in one place: Default can be reassigned to a deterministic
// Generator.
package uuidgen

import "github.com/google/uuid"

// Generator produces a new identifier string on each call.
type Generator func() string

// Default is the process-wide generator used when callers don't inject
// their own. It produces UUIDv7 strings, which sort lexicographically in
// rough creation order.
var Default Generator = New

// New returns a new time-ordered UUID (v7). If the system clock is
// unavailable in a way that breaks v7 generation, it falls back to a random
// v4 UUID so identifier generation never fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
