package examplewf

import (
	"github.com/flowforge/durable/signaling"
	"github.com/flowforge/durable/task"
)

// ApprovalDecision carries a human reviewer's decision and optional note
// (spec §4.8 "Signals").
type ApprovalDecision struct {
	Approved bool
	Note     string
}

// Approve is sent by an external caller once a reviewer has decided.
var Approve = signaling.DefineSignal[ApprovalDecision]("approve")

// Status is queried by an external caller to poll the current decision
// without blocking (spec §4.8 "Queries").
var Status = signaling.DefineQuery[string, struct{}]("status")

// ExpenseApproval builds a workflow that waits for an external Approve
// signal (spec §4.7): it blocks on a signaling.Condition gated by the
// signal handler's recorded decision, then completes or fails depending on
// the outcome. The wait uses the non-durable primitive, so no
// condition.scheduled/satisfied events are logged even when the workflow
// is started with durable.Start.
func ExpenseApproval() *task.Definition {
	d := task.NewDefinition("expense-approval")
	d.Attributes = []*task.AttributeDef{
		{Name: "amount", Required: true, Types: []string{"float64"}, Numeric: true},
	}
	d.Work = func(inst *task.Instance) error {
		var decided bool
		var decision ApprovalDecision

		signaling.SetHandler(inst, Approve, func(d ApprovalDecision) error {
			decided, decision = true, d
			return nil
		})
		signaling.SetQueryHandler(inst, Status, func(struct{}) (string, error) {
			if !decided {
				return "pending", nil
			}
			if decision.Approved {
				return "approved", nil
			}
			return "rejected", nil
		})

		ok, err := signaling.Condition(inst, func() (bool, error) { return decided, nil }, "24h")
		if err != nil {
			return err
		}
		if !ok {
			return inst.Fail("approval timed out", nil)
		}
		if !decision.Approved {
			return inst.Fail("expense rejected: "+decision.Note, map[string]any{"note": decision.Note})
		}
		return nil
	}
	return d
}
