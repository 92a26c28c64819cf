package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFlowJSON() []byte {
	return []byte(`{
		"flow_id": "faq_flow",
		"trigger_id": "trigger1",
		"context": {"tenant_id": "t1"},
		"nodes": [
			{"id": "fetch", "hoop": "rag_search_faq", "parameters": {"query": "{{input.query}}", "tenant_id": "{{tenant_id}}"}},
			{"id": "reply", "hoop": "SendBotReply", "input_from": "fetch", "parameters": {"message": "{{fetch.answer}}"}}
		]
	}`)
}

func TestParseTextual_Valid(t *testing.T) {
	f, err := ParseTextual(sampleFlowJSON())
	require.NoError(t, err)
	assert.Equal(t, "faq_flow", f.FlowID)
	assert.Equal(t, "t1", f.Context.TenantID)
	require.Len(t, f.Nodes, 2)
	assert.Equal(t, "fetch", f.Nodes[0].ID)
	assert.Equal(t, "fetch", f.Nodes[1].InputFrom)
}

func TestParseTextual_MissingFlowID(t *testing.T) {
	_, err := ParseTextual([]byte(`{"nodes":[{"id":"a"}]}`))
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrMissing, loadErr.Kind)
}

func TestParseTextual_DuplicateNodeID(t *testing.T) {
	_, err := ParseTextual([]byte(`{"flow_id":"f","nodes":[{"id":"a"},{"id":"a"}]}`))
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrDuplicate, loadErr.Kind)
}

func TestParseTextual_DanglingReference(t *testing.T) {
	_, err := ParseTextual([]byte(`{"flow_id":"f","nodes":[{"id":"a","jump_to":"ghost"}]}`))
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrDangling, loadErr.Kind)
}

func TestParseTextual_NoNodes(t *testing.T) {
	_, err := ParseTextual([]byte(`{"flow_id":"f","nodes":[]}`))
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrMissing, loadErr.Kind)
}

func TestParseTextual_Malformed(t *testing.T) {
	_, err := ParseTextual([]byte(`{not json`))
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrMalformed, loadErr.Kind)
}

// TestIdempotentLoad covers spec.md §8 property 8: loading the same
// textual flow twice yields structurally equal Flow values.
func TestIdempotentLoad(t *testing.T) {
	a, err := ParseTextual(sampleFlowJSON())
	require.NoError(t, err)
	b, err := ParseTextual(sampleFlowJSON())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// TestBinaryRoundTrip covers spec.md §8 property 8: text→binary→text
// preserves all declared fields.
func TestBinaryRoundTrip(t *testing.T) {
	original, err := ParseTextual(sampleFlowJSON())
	require.NoError(t, err)

	encoded := EncodeBinary(original)
	decoded, err := ParseBinary(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.FlowID, decoded.FlowID)
	assert.Equal(t, original.TriggerID, decoded.TriggerID)
	assert.Equal(t, original.Context.TenantID, decoded.Context.TenantID)
	require.Len(t, decoded.Nodes, len(original.Nodes))
	for i := range original.Nodes {
		assert.Equal(t, original.Nodes[i].ID, decoded.Nodes[i].ID)
		assert.Equal(t, original.Nodes[i].Hoop, decoded.Nodes[i].Hoop)
		assert.Equal(t, original.Nodes[i].InputFrom, decoded.Nodes[i].InputFrom)
		assert.Equal(t, original.Nodes[i].Parameters, decoded.Nodes[i].Parameters)
	}

	rejson, err := EncodeTextual(decoded)
	require.NoError(t, err)
	reparsed, err := ParseTextual(rejson)
	require.NoError(t, err)
	assert.Equal(t, original.FlowID, reparsed.FlowID)
	assert.Equal(t, original.Nodes, reparsed.Nodes)
}

func TestNextByPosition(t *testing.T) {
	f, err := ParseTextual(sampleFlowJSON())
	require.NoError(t, err)
	assert.Equal(t, "reply", f.NextByPosition(0))
	assert.Equal(t, "", f.NextByPosition(1))
}
