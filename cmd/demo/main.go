// Command demo runs the examplewf workflows end to end against an
// in-memory store, the same kind of runnable walkthrough the teacher's own
// cmd/demo provides for its agent runtime.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/flowforge/durable/durable"
	"github.com/flowforge/durable/examplewf"
	"github.com/flowforge/durable/store/memstore"
	"github.com/flowforge/durable/task"
)

func main() {
	runFulfillment()
	runApproval()
}

func runFulfillment() {
	def := examplewf.OrderFulfillment()
	result := task.Execute(def.Definition, map[string]any{
		"orderId": "ord-1001",
		"items":   []any{"widget", "gadget"},
	}, task.Options{})

	fmt.Println("order-fulfillment status:", result.Status())
	if shipmentID, ok := result.Context().Get("shipmentId"); ok {
		fmt.Println("shipmentId:", shipmentID)
	}
}

func runApproval() {
	ctx := context.Background()
	st := memstore.New()
	def := examplewf.ExpenseApproval()

	h, err := durable.Start(ctx, st, "expense-1", "expense-approval", def, map[string]any{"amount": 499.0})
	if err != nil {
		fmt.Println("start failed:", err)
		return
	}

	time.Sleep(10 * time.Millisecond)
	status, err := durable.SendQuery(h, examplewf.Status, struct{}{})
	if err != nil {
		fmt.Println("query failed:", err)
	} else {
		fmt.Println("approval status before decision:", status)
	}

	if err := durable.SendSignal(h, examplewf.Approve, examplewf.ApprovalDecision{Approved: true}); err != nil {
		fmt.Println("signal failed:", err)
		return
	}

	result := h.Result()
	fmt.Println("expense-approval status:", result.Status())
}
