package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lyzr/flowexec/cmd/flowexec/engine"
	"github.com/lyzr/flowexec/cmd/flowexec/handlers"
	"github.com/lyzr/flowexec/cmd/flowexec/publisher"
	"github.com/lyzr/flowexec/cmd/flowexec/registry"
	"github.com/lyzr/flowexec/common/bootstrap"
	commonredis "github.com/lyzr/flowexec/common/redis"
)

// main is the executor's CLI entry point. It implements spec.md §6's four
// callable APIs as subcommands over a flow file, wiring the same
// components a long-running host would use: config, logging, metrics,
// collaborators, the registry, and the engine.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := bootstrap.Setup(ctx, "flowexec")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap flowexec: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	eng := buildEngine(components)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		components.Logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, eng); err != nil {
		components.Logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func buildEngine(components *bootstrap.Components) *engine.Engine {
	cfg := components.Config.Collaborators
	collaborators := handlers.Collaborators{
		FAQSearch:    handlers.NewCollaboratorClient(cfg.FAQSearchURL, cfg.DefaultTimeout, cfg.RateLimitRPS, components.Logger),
		LLMAnswer:    handlers.NewCollaboratorClient(cfg.LLMAnswerURL, cfg.DefaultTimeout, cfg.RateLimitRPS, components.Logger),
		ComplaintLog: handlers.NewCollaboratorClient(cfg.ComplaintLogURL, cfg.DefaultTimeout, cfg.RateLimitRPS, components.Logger),
		DocumentCRUD: handlers.NewCollaboratorClient(cfg.DocumentCRUDURL, cfg.DefaultTimeout, cfg.RateLimitRPS, components.Logger),
		Notify:       handlers.NewCollaboratorClient(cfg.NotifyURL, cfg.DefaultTimeout, cfg.RateLimitRPS, components.Logger),
	}

	reg := registry.New()
	reg.Register("IfNode", &handlers.IfNodeHandler{})
	reg.Register("no_op", &handlers.NoOpHandler{})
	reg.Register("rag_search_faq", handlers.NewFAQSearchHandler(collaborators.FAQSearch))
	reg.Register("generate_answer", handlers.NewLLMAnswerHandler(collaborators.LLMAnswer))
	reg.Register("complaint_log", handlers.NewComplaintLogHandler(collaborators.ComplaintLog))
	reg.Register("document_create", handlers.NewDocumentCRUDHandler(collaborators.DocumentCRUD, handlers.DocCreate))
	reg.Register("document_update", handlers.NewDocumentCRUDHandler(collaborators.DocumentCRUD, handlers.DocUpdate))
	reg.Register("document_delete", handlers.NewDocumentCRUDHandler(collaborators.DocumentCRUD, handlers.DocDelete))
	reg.Register("document_update_by_search", handlers.NewDocumentCRUDHandler(collaborators.DocumentCRUD, handlers.DocUpdateBySearch))
	reg.Register("notify_send", handlers.NewNotifySendHandler(collaborators.Notify))

	var pub publisher.Publisher = publisher.NoOp{}
	if components.Redis != nil {
		wrapped := commonredis.NewClient(components.Redis, components.Logger)
		pub = publisher.NewRedisPublisher(wrapped, components.Logger)
	}

	return engine.New(reg, pub, components.Metrics, components.Logger)
}

// run parses the CLI subcommand and dispatches to the matching engine API.
func run(ctx context.Context, eng *engine.Engine) error {
	if len(os.Args) < 3 {
		printUsage()
		return fmt.Errorf("missing subcommand or flow path")
	}

	subcommand := os.Args[1]
	fs := flag.NewFlagSet(subcommand, flag.ExitOnError)
	inputJSON := fs.String("input", "", "JSON object merged into the flow's caller input")
	deadline := fs.Duration("deadline", 0, "whole-flow deadline; 0 means no deadline")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	args := fs.Args()
	if len(args) < 1 {
		printUsage()
		return fmt.Errorf("missing flow path")
	}
	path := args[0]

	input, err := parseInput(*inputJSON)
	if err != nil {
		return fmt.Errorf("invalid --input: %w", err)
	}

	runCtx := ctx
	if *deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, *deadline)
		defer cancel()
	}

	var result engine.Result
	switch subcommand {
	case "run_flow_from_file":
		result, err = eng.RunFlowFromFile(runCtx, path)
	case "run_flow_from_file_with_input":
		result, err = eng.RunFlowFromFileWithInput(runCtx, path, input)
	case "run_flow_and_return_output":
		result, err = eng.RunFlowAndReturnOutput(runCtx, path, input)
	case "run_protobuf_flow_from_file":
		if len(args) < 2 {
			return fmt.Errorf("run_protobuf_flow_from_file requires both json_path and bin_path")
		}
		result, err = eng.RunProtobufFlowFromFile(runCtx, path, args[1])
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand %q", subcommand)
	}
	if err != nil {
		return err
	}

	return printResult(result)
}

func parseInput(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func printResult(result engine.Result) error {
	outputMap := make(map[string]interface{}, len(result.Output))
	for k, v := range result.Output {
		outputMap[k] = v.ToAny()
	}

	payload := map[string]interface{}{
		"status": string(result.Status),
		"output": outputMap,
	}
	if result.Failure != nil {
		payload["failure"] = map[string]interface{}{
			"node_id": result.Failure.NodeID,
			"hoop":    result.Failure.Hoop,
			"kind":    result.Failure.Kind,
			"message": result.Failure.Message,
		}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	if result.Status != engine.StatusSuccess {
		return fmt.Errorf("flow ended with status %s", result.Status)
	}
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage:
  flowexec run_flow_from_file <path>
  flowexec run_flow_from_file_with_input [--input=<json>] <path>
  flowexec run_flow_and_return_output [--input=<json>] <path>
  flowexec run_protobuf_flow_from_file <json_path> <bin_path>

flags:
  --input=<json>    caller input merged into the flow's context
  --deadline=<dur>   whole-flow deadline, e.g. 10s`)
}
