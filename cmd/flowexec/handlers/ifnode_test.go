package handlers

import (
	"context"
	"testing"

	"github.com/lyzr/flowexec/cmd/flowexec/registry"
	"github.com/lyzr/flowexec/cmd/flowexec/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runIfNode(t *testing.T, op IfNodeOperator, lhs, rhs value.Value) (bool, error) {
	t.Helper()
	h := &IfNodeHandler{}
	rendered := map[string]value.Value{
		OperandLHS:      lhs,
		OperandRHS:      rhs,
		OperandOperator: value.String(string(op)),
	}
	res, err := h.Execute(context.Background(), rendered)
	if err != nil {
		return false, err
	}
	return res.NextID == BranchTrue, nil
}

func TestIfNode_NumericOperators(t *testing.T) {
	cases := []struct {
		op       IfNodeOperator
		lhs, rhs float64
		want     bool
	}{
		{OpGreaterEqual, 0.82, 0.7, true},
		{OpGreaterEqual, 0.5, 0.7, false},
		{OpLessThan, 1, 2, true},
		{OpGreaterThan, 2, 1, true},
		{OpLessEqual, 2, 2, true},
		{OpEqual, 2, 2, true},
		{OpNotEqual, 2, 3, true},
	}
	for _, c := range cases {
		got, err := runIfNode(t, c.op, value.Number(c.lhs), value.Number(c.rhs))
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%v %s %v", c.lhs, c.op, c.rhs)
	}
}

func TestIfNode_StringEquality(t *testing.T) {
	got, err := runIfNode(t, OpEqual, value.String("ok"), value.String("ok"))
	require.NoError(t, err)
	assert.True(t, got)

	got, err = runIfNode(t, OpNotEqual, value.String("ok"), value.String("no"))
	require.NoError(t, err)
	assert.True(t, got)
}

func TestIfNode_OrderingOnNonNumericIsInvalidInput(t *testing.T) {
	_, err := runIfNode(t, OpGreaterThan, value.String("a"), value.String("b"))
	require.Error(t, err)
	var hErr *registry.HandlerError
	require.ErrorAs(t, err, &hErr)
	assert.Equal(t, registry.ErrInvalidInput, hErr.Kind)
}

func TestIfNode_MissingOperandIsInvalidInput(t *testing.T) {
	h := &IfNodeHandler{}
	_, err := h.Execute(context.Background(), map[string]value.Value{
		OperandRHS:      value.String("x"),
		OperandOperator: value.String(string(OpEqual)),
	})
	require.Error(t, err)
	var hErr *registry.HandlerError
	require.ErrorAs(t, err, &hErr)
	assert.Equal(t, registry.ErrInvalidInput, hErr.Kind)
}

func TestIfNode_MissingOperatorIsInvalidInput(t *testing.T) {
	h := &IfNodeHandler{}
	_, err := h.Execute(context.Background(), map[string]value.Value{
		OperandLHS: value.Number(1),
		OperandRHS: value.Number(2),
	})
	require.Error(t, err)
	var hErr *registry.HandlerError
	require.ErrorAs(t, err, &hErr)
	assert.Equal(t, registry.ErrInvalidInput, hErr.Kind)
}
