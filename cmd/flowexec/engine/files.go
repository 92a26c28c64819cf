package engine

import (
	"context"
	"fmt"

	"github.com/lyzr/flowexec/cmd/flowexec/flow"
)

// RunFlowFromFile loads a textual flow and runs it with no caller input,
// per spec.md §6 "run_flow_from_file(path)".
func (e *Engine) RunFlowFromFile(ctx context.Context, path string) (Result, error) {
	return e.RunFlowFromFileWithInput(ctx, path, nil)
}

// RunFlowFromFileWithInput loads a textual flow, merges input, and runs it,
// per spec.md §6 "run_flow_from_file_with_input(path, input_map)".
func (e *Engine) RunFlowFromFileWithInput(ctx context.Context, path string, input map[string]interface{}) (Result, error) {
	f, err := flow.LoadTextualFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("run_flow_from_file_with_input: %w", err)
	}
	return e.Run(ctx, f, input), nil
}

// RunFlowAndReturnOutput is equivalent to RunFlowFromFileWithInput but
// named for the contract in spec.md §6
// "run_flow_and_return_output(path, input_map) → output_map".
func (e *Engine) RunFlowAndReturnOutput(ctx context.Context, path string, input map[string]interface{}) (Result, error) {
	return e.RunFlowFromFileWithInput(ctx, path, input)
}

// RunProtobufFlowFromFile compiles jsonPath (the textual source) to binPath
// if binPath is stale or absent, then loads the binary form from binPath and
// runs it with no caller input, per spec.md §6
// "run_protobuf_flow_from_file(path)".
func (e *Engine) RunProtobufFlowFromFile(ctx context.Context, jsonPath, binPath string) (Result, error) {
	if err := flow.CompileIfNeeded(jsonPath, binPath); err != nil {
		return Result{}, fmt.Errorf("run_protobuf_flow_from_file: %w", err)
	}
	f, err := flow.LoadBinaryFile(binPath)
	if err != nil {
		return Result{}, fmt.Errorf("run_protobuf_flow_from_file: %w", err)
	}
	return e.Run(ctx, f, nil), nil
}
