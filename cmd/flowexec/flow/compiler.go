package flow

import (
	"fmt"
	"os"
	"path/filepath"
)

// Compile converts a textual (JSON) flow file into its binary sibling,
// grounded on the teacher's CompileWorkflowSchema collaborator contract
// (spec.md §6's "Flow compiler: compile(json_path, output_path)").
func Compile(jsonPath, outputPath string) error {
	f, err := LoadTextualFile(jsonPath)
	if err != nil {
		return fmt.Errorf("compile %s: %w", jsonPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("compile %s: failed to create output dir: %w", jsonPath, err)
	}

	if err := os.WriteFile(outputPath, EncodeBinary(f), 0o644); err != nil {
		return fmt.Errorf("compile %s: failed to write %s: %w", jsonPath, outputPath, err)
	}
	return nil
}

// Decompile converts a binary flow file back to its textual (JSON) form,
// used to verify the text→binary→text round-trip (spec.md §8 property 8).
func Decompile(binPath, outputPath string) error {
	f, err := LoadBinaryFile(binPath)
	if err != nil {
		return fmt.Errorf("decompile %s: %w", binPath, err)
	}

	data, err := EncodeTextual(f)
	if err != nil {
		return fmt.Errorf("decompile %s: failed to encode JSON: %w", binPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("decompile %s: failed to create output dir: %w", binPath, err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("decompile %s: failed to write %s: %w", binPath, outputPath, err)
	}
	return nil
}

// CompileIfNeeded compiles jsonPath to binPath when binPath is missing or
// older than jsonPath, matching spec.md §6's "compile-if-needed" semantics
// for run_protobuf_flow_from_file.
func CompileIfNeeded(jsonPath, binPath string) error {
	jsonInfo, err := os.Stat(jsonPath)
	if err != nil {
		return fmt.Errorf("compile-if-needed: failed to stat %s: %w", jsonPath, err)
	}

	binInfo, err := os.Stat(binPath)
	if err == nil && !binInfo.ModTime().Before(jsonInfo.ModTime()) {
		return nil // up to date
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("compile-if-needed: failed to stat %s: %w", binPath, err)
	}

	return Compile(jsonPath, binPath)
}
