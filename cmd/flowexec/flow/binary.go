package flow

import (
	"encoding/json"
	"fmt"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// Binary wire format: a field-tagged, length-prefixed encoding built
// directly on protowire's primitives (varint tags, length-delimited
// bytes/sub-messages) rather than a hand-rolled ad hoc blob. Field numbers
// are assigned stably and never reused across format revisions.
//
// Flow message:
//   1: flow_id    (string)
//   2: trigger_id (string)
//   3: context    (embedded Context message)
//   4: nodes      (repeated embedded Node message)
//
// Context message:
//   1: user_id    (string)
//   2: tenant_id  (string)
//   3: session_id (string)
//   4: input      (bytes, JSON-encoded freeform map)
//
// Node message:
//   1: id          (string)
//   2: hoop        (string)
//   3: parameters  (bytes, JSON-encoded freeform map)
//   4: input_from  (string)
//   5: true_path   (string)
//   6: false_path  (string)
//   7: jump_to     (string)

const (
	fieldFlowID    = protowire.Number(1)
	fieldTriggerID = protowire.Number(2)
	fieldContext   = protowire.Number(3)
	fieldNodes     = protowire.Number(4)

	fieldCtxUserID    = protowire.Number(1)
	fieldCtxTenantID  = protowire.Number(2)
	fieldCtxSessionID = protowire.Number(3)
	fieldCtxInput     = protowire.Number(4)

	fieldNodeID         = protowire.Number(1)
	fieldNodeHoop       = protowire.Number(2)
	fieldNodeParameters = protowire.Number(3)
	fieldNodeInputFrom  = protowire.Number(4)
	fieldNodeTruePath   = protowire.Number(5)
	fieldNodeFalsePath  = protowire.Number(6)
	fieldNodeJumpTo     = protowire.Number(7)
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendString(b, s)
	return b
}

func appendBytesField(b []byte, num protowire.Number, data []byte) []byte {
	if len(data) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, data)
	return b
}

func encodeContext(c Context) []byte {
	var b []byte
	b = appendString(b, fieldCtxUserID, c.UserID)
	b = appendString(b, fieldCtxTenantID, c.TenantID)
	b = appendString(b, fieldCtxSessionID, c.SessionID)
	if c.Input != nil {
		j, err := json.Marshal(c.Input)
		if err == nil {
			b = appendBytesField(b, fieldCtxInput, j)
		}
	}
	return b
}

func encodeNode(n Node) []byte {
	var b []byte
	b = appendString(b, fieldNodeID, n.ID)
	b = appendString(b, fieldNodeHoop, n.Hoop)
	if n.Parameters != nil {
		j, err := json.Marshal(n.Parameters)
		if err == nil {
			b = appendBytesField(b, fieldNodeParameters, j)
		}
	}
	b = appendString(b, fieldNodeInputFrom, n.InputFrom)
	b = appendString(b, fieldNodeTruePath, n.TruePath)
	b = appendString(b, fieldNodeFalsePath, n.FalsePath)
	b = appendString(b, fieldNodeJumpTo, n.JumpTo)
	return b
}

// EncodeBinary serializes a Flow into the length-prefixed binary wire
// format, the concrete interpretation of spec.md's "protobuf-like" form.
func EncodeBinary(f *Flow) []byte {
	var b []byte
	b = appendString(b, fieldFlowID, f.FlowID)
	b = appendString(b, fieldTriggerID, f.TriggerID)
	if ctxBytes := encodeContext(f.Context); len(ctxBytes) > 0 {
		b = appendBytesField(b, fieldContext, ctxBytes)
	}
	for _, n := range f.Nodes {
		b = appendBytesField(b, fieldNodes, encodeNode(n))
	}
	return b
}

func decodeContext(data []byte) (Context, error) {
	var c Context
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return c, newLoadError(ErrMalformed, "context", "truncated field tag")
		}
		data = data[n:]

		switch num {
		case fieldCtxUserID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return c, newLoadError(ErrMalformed, "context.user_id", "truncated string")
			}
			c.UserID = s
			data = data[m:]
		case fieldCtxTenantID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return c, newLoadError(ErrMalformed, "context.tenant_id", "truncated string")
			}
			c.TenantID = s
			data = data[m:]
		case fieldCtxSessionID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return c, newLoadError(ErrMalformed, "context.session_id", "truncated string")
			}
			c.SessionID = s
			data = data[m:]
		case fieldCtxInput:
			raw, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return c, newLoadError(ErrMalformed, "context.input", "truncated bytes")
			}
			var input map[string]interface{}
			if err := json.Unmarshal(raw, &input); err != nil {
				return c, newLoadError(ErrMalformed, "context.input", fmt.Sprintf("invalid JSON payload: %v", err))
			}
			c.Input = input
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return c, newLoadError(ErrMalformed, "context", "unknown field: truncated value")
			}
			data = data[m:]
		}
	}
	return c, nil
}

func decodeNode(data []byte) (Node, error) {
	var n Node
	for len(data) > 0 {
		num, typ, sz := protowire.ConsumeTag(data)
		if sz < 0 {
			return n, newLoadError(ErrMalformed, "nodes[]", "truncated field tag")
		}
		data = data[sz:]

		switch num {
		case fieldNodeID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return n, newLoadError(ErrMalformed, "nodes[].id", "truncated string")
			}
			n.ID = s
			data = data[m:]
		case fieldNodeHoop:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return n, newLoadError(ErrMalformed, "nodes[].hoop", "truncated string")
			}
			n.Hoop = s
			data = data[m:]
		case fieldNodeParameters:
			raw, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return n, newLoadError(ErrMalformed, "nodes[].parameters", "truncated bytes")
			}
			var params map[string]interface{}
			if err := json.Unmarshal(raw, &params); err != nil {
				return n, newLoadError(ErrMalformed, "nodes[].parameters", fmt.Sprintf("invalid JSON payload: %v", err))
			}
			n.Parameters = params
			data = data[m:]
		case fieldNodeInputFrom:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return n, newLoadError(ErrMalformed, "nodes[].input_from", "truncated string")
			}
			n.InputFrom = s
			data = data[m:]
		case fieldNodeTruePath:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return n, newLoadError(ErrMalformed, "nodes[].true_path", "truncated string")
			}
			n.TruePath = s
			data = data[m:]
		case fieldNodeFalsePath:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return n, newLoadError(ErrMalformed, "nodes[].false_path", "truncated string")
			}
			n.FalsePath = s
			data = data[m:]
		case fieldNodeJumpTo:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return n, newLoadError(ErrMalformed, "nodes[].jump_to", "truncated string")
			}
			n.JumpTo = s
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return n, newLoadError(ErrMalformed, "nodes[]", "unknown field: truncated value")
			}
			data = data[m:]
		}
	}
	return n, nil
}

// ParseBinary decodes a flow from its binary wire form and validates it.
func ParseBinary(data []byte) (*Flow, error) {
	f := &Flow{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, newLoadError(ErrMalformed, "", "truncated field tag")
		}
		data = data[n:]

		switch num {
		case fieldFlowID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, newLoadError(ErrMalformed, "flow_id", "truncated string")
			}
			f.FlowID = s
			data = data[m:]
		case fieldTriggerID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, newLoadError(ErrMalformed, "trigger_id", "truncated string")
			}
			f.TriggerID = s
			data = data[m:]
		case fieldContext:
			raw, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, newLoadError(ErrMalformed, "context", "truncated bytes")
			}
			ctx, err := decodeContext(raw)
			if err != nil {
				return nil, err
			}
			f.Context = ctx
			data = data[m:]
		case fieldNodes:
			raw, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, newLoadError(ErrMalformed, "nodes[]", "truncated bytes")
			}
			node, err := decodeNode(raw)
			if err != nil {
				return nil, err
			}
			f.Nodes = append(f.Nodes, node)
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, newLoadError(ErrMalformed, "", "unknown field: truncated value")
			}
			data = data[m:]
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadBinaryFile reads and parses a binary (.bin) flow file.
func LoadBinaryFile(path string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file %s: %w", path, err)
	}
	return ParseBinary(data)
}
