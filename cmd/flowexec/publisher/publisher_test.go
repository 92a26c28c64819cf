package publisher

import (
	"context"
	"testing"

	"github.com/lyzr/flowexec/cmd/flowexec/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOp_NeverFails(t *testing.T) {
	var p Publisher = NoOp{}
	err := p.Publish(context.Background(), "u1", []byte("anything"))
	require.NoError(t, err)
}

func TestEvent_Serialize(t *testing.T) {
	e := Event{
		EventID:   "e1",
		FlowID:    "f1",
		NodeID:    "n1",
		Hoop:      "rag_search_faq",
		Output:    map[string]value.Value{"answer": value.String("hi")},
		UserID:    "u1",
		TenantID:  "t1",
		Status:    "success",
		Timestamp: 1700000000,
	}
	data, err := e.Serialize()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"success"`)
	assert.Contains(t, string(data), `"node_id":"n1"`)
}
