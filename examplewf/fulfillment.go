// Package examplewf contains worked, runnable examples wiring the engine
// end to end: an order-fulfillment pipeline (Task chain with a parallel
// fan-out Group, spec §4.5) and a signal/condition-driven approval
// workflow (spec §4.8/§4.9). These are demonstrations for cmd/demo, not
// part of the module's core contract (SPEC_FULL.md §12.6).
package examplewf

import (
	"fmt"

	"github.com/flowforge/durable/task"
	"github.com/flowforge/durable/workflow"
)

// OrderFulfillment builds the order-fulfillment workflow: validate the
// order, then charge payment, reserve inventory, and notify the warehouse
// concurrently, then ship. The parallel group's children run against
// isolated Context clones (spec §4.5 P5); the group's default breakpoints
// (["failed"]) mean ship-order is only ever reached once every fan-out
// child has already succeeded, so it needs no extra check of its own.
func OrderFulfillment() *workflow.Definition {
	def := workflow.NewDefinition("order-fulfillment")
	def.Tasks = []workflow.ListEntry{
		{Task: validateOrderTask()},
		{Group: &workflow.Group{
			Strategy: workflow.Parallel,
			Entries: []workflow.ListEntry{
				{Task: chargePaymentTask()},
				{Task: reserveInventoryTask()},
				{Task: notifyWarehouseTask()},
			},
		}},
		{Task: shipOrderTask()},
	}
	return def
}

func validateOrderTask() *task.Definition {
	d := task.NewDefinition("validate-order")
	d.Attributes = []*task.AttributeDef{
		{Name: "orderId", Required: true, Types: []string{"string"}, Presence: true},
		{Name: "items", Required: true},
	}
	d.Work = func(inst *task.Instance) error {
		items, _ := inst.Attr("items")
		list, ok := items.([]any)
		if !ok || len(list) == 0 {
			return inst.Fail("order has no items", nil)
		}
		return nil
	}
	return d
}

func chargePaymentTask() *task.Definition {
	d := task.NewDefinition("charge-payment")
	d.Attributes = []*task.AttributeDef{
		{Name: "orderId", Required: true, Types: []string{"string"}, Presence: true},
	}
	d.Work = func(inst *task.Instance) error {
		return nil
	}
	return d
}

func reserveInventoryTask() *task.Definition {
	d := task.NewDefinition("reserve-inventory")
	d.Attributes = []*task.AttributeDef{
		{Name: "items", Required: true},
	}
	d.Work = func(inst *task.Instance) error {
		return nil
	}
	return d
}

func notifyWarehouseTask() *task.Definition {
	d := task.NewDefinition("notify-warehouse")
	d.Work = func(inst *task.Instance) error { return nil }
	return d
}

func shipOrderTask() *task.Definition {
	d := task.NewDefinition("ship-order")
	d.Attributes = []*task.AttributeDef{
		{Name: "orderId", Required: true, Types: []string{"string"}, Presence: true},
	}
	d.Work = func(inst *task.Instance) error {
		orderID, _ := inst.Attr("orderId")
		inst.Context().Set("shipmentId", fmt.Sprintf("ship-%v", orderID))
		return nil
	}
	return d
}
