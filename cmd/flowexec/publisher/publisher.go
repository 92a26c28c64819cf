package publisher

import "context"

// Publisher hands a serialized ExecutionEvent off to an external sink. The
// engine treats it as fire-and-forget: publish blocks only long enough to
// hand off the payload, and a publish failure never fails the node it
// describes (spec.md §4.6).
type Publisher interface {
	// Publish delivers serializedEvent, routed by userID as the partition
	// key so events for the same user are ordered at the sink.
	Publish(ctx context.Context, userID string, serializedEvent []byte) error
}

// NoOp is the silent no-op publisher used when no sink is configured
// (spec.md §4.6 "If no sink is configured, publish is a silent no-op").
type NoOp struct{}

func (NoOp) Publish(ctx context.Context, userID string, serializedEvent []byte) error {
	return nil
}
