package handlers

import (
	"context"
	"time"

	"github.com/lyzr/flowexec/cmd/flowexec/registry"
	"github.com/lyzr/flowexec/cmd/flowexec/value"
)

// IfNodeOperator enumerates the comparison operators spec.md §4.4 allows.
type IfNodeOperator string

const (
	OpEqual        IfNodeOperator = "=="
	OpNotEqual     IfNodeOperator = "!="
	OpGreaterThan  IfNodeOperator = ">"
	OpLessThan     IfNodeOperator = "<"
	OpGreaterEqual IfNodeOperator = ">="
	OpLessEqual    IfNodeOperator = "<="
)

// BranchTrue and BranchFalse are the symbolic Result.NextID values
// IfNodeHandler returns. A node's field/operator/value/true_path/false_path
// differ per occurrence, so the handler stays a single stateless, shareable
// instance (registered once, per spec.md §4.4) and leaves mapping these
// symbols onto the node's actual true_path/false_path to the engine, which
// already owns the node declaration.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

// IfNodeHandler is the built-in Branch handler. The engine renders the
// node's field/operator/value parameters, resolves the left operand from
// outputs[input_from][field], and passes both operands in via rendered
// under the keys below.
type IfNodeHandler struct{}

const (
	OperandLHS      = "__lhs__"
	OperandOperator = "__operator__"
	OperandRHS      = "__rhs__"
)

func (h *IfNodeHandler) Classification() registry.Classification { return registry.Branch }

func (h *IfNodeHandler) RequiredFields() []string { return []string{"field", "operator", "value"} }

func (h *IfNodeHandler) Timeout() time.Duration { return 0 }

func (h *IfNodeHandler) Retry() registry.RetryPolicy { return registry.RetryPolicy{MaxAttempts: 1} }

// Execute compares the left operand against the right operand using the
// given operator, per spec.md §4.4/§8 property 5: == and != work on both
// numeric and string operands; ordering operators require both sides to
// already be numeric, with no implicit coercion (spec.md §9 open question).
func (h *IfNodeHandler) Execute(ctx context.Context, rendered map[string]value.Value) (registry.Result, error) {
	lhs, ok := rendered[OperandLHS]
	if !ok {
		return registry.Result{}, registry.NewHandlerError(registry.ErrInvalidInput, "missing comparison operand")
	}
	rhs, ok := rendered[OperandRHS]
	if !ok {
		return registry.Result{}, registry.NewHandlerError(registry.ErrInvalidInput, "missing comparison value")
	}
	opStr, ok := rendered[OperandOperator].AsString()
	if !ok {
		return registry.Result{}, registry.NewHandlerError(registry.ErrInvalidInput, "missing or non-string operator")
	}

	matched, err := compare(lhs, IfNodeOperator(opStr), rhs)
	if err != nil {
		return registry.Result{}, err
	}

	if matched {
		return registry.Result{NextID: BranchTrue}, nil
	}
	return registry.Result{NextID: BranchFalse}, nil
}

func compare(lhs value.Value, op IfNodeOperator, rhs value.Value) (bool, error) {
	lNum, lIsNum := lhs.AsNumber()
	rNum, rIsNum := rhs.AsNumber()
	bothNumeric := lIsNum && rIsNum

	switch op {
	case OpEqual:
		if bothNumeric {
			return lNum == rNum, nil
		}
		return equalAsStrings(lhs, rhs), nil
	case OpNotEqual:
		if bothNumeric {
			return lNum != rNum, nil
		}
		return !equalAsStrings(lhs, rhs), nil
	case OpGreaterThan, OpLessThan, OpGreaterEqual, OpLessEqual:
		if !bothNumeric {
			return false, registry.NewHandlerError(registry.ErrInvalidInput,
				"ordering comparisons require both operands to be numeric")
		}
		switch op {
		case OpGreaterThan:
			return lNum > rNum, nil
		case OpLessThan:
			return lNum < rNum, nil
		case OpGreaterEqual:
			return lNum >= rNum, nil
		case OpLessEqual:
			return lNum <= rNum, nil
		}
	}
	return false, registry.NewHandlerError(registry.ErrInvalidInput, "unknown operator: "+string(op))
}

func equalAsStrings(a, b value.Value) bool {
	as, aOK := a.AsString()
	bs, bOK := b.AsString()
	if aOK && bOK {
		return as == bs
	}
	// Fall back to the stringified form so e.g. bool==bool still compares
	// sensibly; numeric/numeric is already handled above.
	return a.String() == b.String()
}
