//go:build integration

package mongostore_test

import (
	"context"
	"testing"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/flowforge/durable/store"
	"github.com/flowforge/durable/store/mongostore"
	"github.com/flowforge/durable/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	ctx := context.Background()
	container, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongodriver.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	storetest.Conformance(t, func() store.WorkflowStore {
		s, err := mongostore.New(ctx, mongostore.Options{Client: client, Database: "durable_test"})
		require.NoError(t, err)
		return s
	})
}
