package memstore_test

import (
	"testing"

	"github.com/flowforge/durable/store"
	"github.com/flowforge/durable/store/memstore"
	"github.com/flowforge/durable/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Conformance(t, func() store.WorkflowStore { return memstore.New() })
}
