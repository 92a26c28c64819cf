package flowcontext

import (
	"testing"

	"github.com/lyzr/flowexec/cmd/flowexec/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_PromotesIdentityFirstWriteWins(t *testing.T) {
	fc := New("", "", "s1", nil)
	fc.Bootstrap(map[string]interface{}{
		"input": map[string]interface{}{"tenant_id": "t1", "user_id": "u1"},
	})

	assert.Equal(t, "t1", fc.TenantID)
	assert.Equal(t, "u1", fc.UserID)

	// Already-set identity fields are not overridden by a later bootstrap.
	fc.Bootstrap(map[string]interface{}{
		"input": map[string]interface{}{"tenant_id": "t2"},
	})
	assert.Equal(t, "t1", fc.TenantID)
}

func TestBootstrap_LeavesIdentityEmptyWithoutNestedInput(t *testing.T) {
	fc := New("", "", "", nil)
	fc.Bootstrap(map[string]interface{}{"query": "hi"})
	assert.Empty(t, fc.TenantID)
	assert.Empty(t, fc.UserID)
}

func TestSnapshot_LayersIdentityInputAndOutputs(t *testing.T) {
	fc := New("u1", "t1", "s1", map[string]interface{}{"query": "hi"})
	fc.SetOutput("fetch", map[string]value.Value{"answer": value.String("yo")})

	snap := fc.Snapshot()

	uid, ok := snap["user_id"].AsString()
	require.True(t, ok)
	assert.Equal(t, "u1", uid)

	query, ok := snap["query"].AsString()
	require.True(t, ok)
	assert.Equal(t, "hi", query)

	nestedInput, ok := snap["input"].Field("query")
	require.True(t, ok)
	nestedQuery, _ := nestedInput.AsString()
	assert.Equal(t, "hi", nestedQuery)

	fetchOut, ok := snap["fetch"].Field("answer")
	require.True(t, ok)
	answer, _ := fetchOut.AsString()
	assert.Equal(t, "yo", answer)
}

func TestOutput_ReturnsStoredValueAndPresence(t *testing.T) {
	fc := New("", "", "", nil)
	_, ok := fc.Output("missing")
	assert.False(t, ok)

	fc.SetOutput("n1", map[string]value.Value{"x": value.Number(1)})
	out, ok := fc.Output("n1")
	require.True(t, ok)
	n, _ := out["x"].AsNumber()
	assert.Equal(t, 1.0, n)
}
