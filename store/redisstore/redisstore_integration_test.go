//go:build integration

package redisstore_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/flowforge/durable/store"
	"github.com/flowforge/durable/store/redisstore"
	"github.com/flowforge/durable/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	storetest.Conformance(t, func() store.WorkflowStore {
		opts, err := redis.ParseURL(uri)
		require.NoError(t, err)
		return redisstore.New(redis.NewClient(opts))
	})
}
