package engine

import "github.com/lyzr/flowexec/cmd/flowexec/value"

// Status is a run's terminal outcome label, also used as the
// flow_executions_total status tag.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Failure describes why a run ended in StatusFail, surfaced to the caller
// per spec.md §7 "structured result carrying the originating node id, hoop
// kind, error kind, and a short message".
type Failure struct {
	NodeID  string
	Hoop    string
	Kind    string
	Message string
}

// Result is what run/run_and_return hands back to the caller.
type Result struct {
	Output  map[string]value.Value
	Status  Status
	Failure *Failure
}
