package flow

import (
	"encoding/json"
	"fmt"
	"os"
)

// textualFlow mirrors the JSON wire shape from spec.md §6. Unknown fields
// are ignored, as the spec requires, which is encoding/json's default
// behavior for struct decoding.
type textualFlow struct {
	FlowID    string          `json:"flow_id"`
	TriggerID string          `json:"trigger_id,omitempty"`
	Context   *textualContext `json:"context,omitempty"`
	Nodes     []textualNode   `json:"nodes"`
}

type textualContext struct {
	UserID    string                 `json:"user_id,omitempty"`
	TenantID  string                 `json:"tenant_id,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
}

type textualNode struct {
	ID         string                 `json:"id"`
	Hoop       string                 `json:"hoop,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	InputFrom  string                 `json:"input_from,omitempty"`
	TruePath   string                 `json:"true_path,omitempty"`
	FalsePath  string                 `json:"false_path,omitempty"`
	JumpTo     string                 `json:"jump_to,omitempty"`
}

// ParseTextual decodes a flow from its JSON form and validates it.
func ParseTextual(data []byte) (*Flow, error) {
	var tf textualFlow
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, newLoadError(ErrMalformed, "", fmt.Sprintf("invalid JSON: %v", err))
	}

	f := &Flow{
		FlowID:    tf.FlowID,
		TriggerID: tf.TriggerID,
	}
	if tf.Context != nil {
		f.Context = Context{
			UserID:    tf.Context.UserID,
			TenantID:  tf.Context.TenantID,
			SessionID: tf.Context.SessionID,
			Input:     tf.Context.Input,
		}
	}
	f.Nodes = make([]Node, len(tf.Nodes))
	for i, n := range tf.Nodes {
		f.Nodes[i] = Node{
			ID:         n.ID,
			Hoop:       n.Hoop,
			Parameters: n.Parameters,
			InputFrom:  n.InputFrom,
			TruePath:   n.TruePath,
			FalsePath:  n.FalsePath,
			JumpTo:     n.JumpTo,
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadTextualFile reads and parses a textual (.json) flow file.
func LoadTextualFile(path string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file %s: %w", path, err)
	}
	return ParseTextual(data)
}

// EncodeTextual serializes a Flow back to its JSON form, used by Decompile
// and by tests asserting the text→binary→text round-trip.
func EncodeTextual(f *Flow) ([]byte, error) {
	tf := textualFlow{
		FlowID:    f.FlowID,
		TriggerID: f.TriggerID,
		Nodes:     make([]textualNode, len(f.Nodes)),
	}
	if f.Context.UserID != "" || f.Context.TenantID != "" || f.Context.SessionID != "" || f.Context.Input != nil {
		tf.Context = &textualContext{
			UserID:    f.Context.UserID,
			TenantID:  f.Context.TenantID,
			SessionID: f.Context.SessionID,
			Input:     f.Context.Input,
		}
	}
	for i, n := range f.Nodes {
		tf.Nodes[i] = textualNode{
			ID:         n.ID,
			Hoop:       n.Hoop,
			Parameters: n.Parameters,
			InputFrom:  n.InputFrom,
			TruePath:   n.TruePath,
			FalsePath:  n.FalsePath,
			JumpTo:     n.JumpTo,
		}
	}
	return json.Marshal(tf)
}
