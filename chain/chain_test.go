package chain_test

import (
	"testing"

	"github.com/flowforge/durable/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIndexMonotonic(t *testing.T) {
	c := chain.New()
	for want := 0; want < 5; want++ {
		got := c.NextIndex()
		require.Equal(t, want, got, "nextIndex must return-then-increment")
	}
}

func newTestResult(c *chain.Chain, status chain.Status) *chain.Result {
	r := chain.NewResult(chain.Params{
		Chain:  c,
		Index:  c.NextIndex(),
		State:  chain.StateComplete,
		Status: status,
	})
	c.AddResult(r)
	return r
}

func TestAddResultAndDerivedAccessors(t *testing.T) {
	c := chain.New()
	success := newTestResult(c, chain.StatusSuccess)
	failed := newTestResult(c, chain.StatusFailed)

	require.Equal(t, 2, c.Size())
	assert.Equal(t, success, c.GetResult(0))
	assert.Equal(t, failed, c.GetResult(1))
	assert.Equal(t, failed, c.LastResult())
	assert.Equal(t, failed, c.FirstFailure())
	assert.True(t, c.HasFailed())
	assert.False(t, c.AllSucceeded())
}

func TestChildChainLinksToParent(t *testing.T) {
	root := chain.New()
	child := root.CreateChild()
	grandchild := child.CreateChild()

	assert.Equal(t, root, child.Parent())
	assert.Equal(t, root, grandchild.Root())
	assert.Equal(t, 2, grandchild.Depth())
	assert.Equal(t, 0, root.Depth())
}

func TestResultMetadataIsDefensiveCopy(t *testing.T) {
	c := chain.New()
	r := chain.NewResult(chain.Params{
		Chain:    c,
		Index:    c.NextIndex(),
		State:    chain.StateComplete,
		Status:   chain.StatusSuccess,
		Metadata: map[string]any{"k": "v"},
	})

	md := r.Metadata()
	md["k"] = "mutated"
	md["new"] = true

	again := r.Metadata()
	assert.Equal(t, "v", again["k"], "mutating a returned Metadata map must not affect the Result")
	assert.NotContains(t, again, "new")
}

func TestResultOnDispatchesOnMatchingPredicateOnly(t *testing.T) {
	c := chain.New()
	r := chain.NewResult(chain.Params{Chain: c, Index: 0, State: chain.StateComplete, Status: chain.StatusSuccess})

	var sawSuccess, sawFailed bool
	out := r.On(chain.TypeSuccess, func(*chain.Result) { sawSuccess = true }).
		On(chain.TypeFailed, func(*chain.Result) { sawFailed = true })

	assert.Same(t, r, out, "On must return the receiver for chaining")
	assert.True(t, sawSuccess)
	assert.False(t, sawFailed)
}
