package publisher

import (
	"context"
	"fmt"

	"github.com/lyzr/flowexec/common/logger"
	commonredis "github.com/lyzr/flowexec/common/redis"
)

// RedisPublisher delivers events via XADD to a per-user stream
// ("events:{user_id}"), grounded on the teacher's
// RunRequestConsumer.publishWorkflowEvent Redis-stream idiom. Durability,
// acks, and retries beyond the XADD call are the sink's responsibility.
type RedisPublisher struct {
	client *commonredis.Client
	log    *logger.Logger
}

// NewRedisPublisher wraps an already-connected Redis client.
func NewRedisPublisher(client *commonredis.Client, log *logger.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, log: log}
}

func streamForUser(userID string) string {
	if userID == "" {
		userID = "unknown"
	}
	return fmt.Sprintf("events:%s", userID)
}

// Publish adds the event to the user's stream. A transport error is logged
// and returned to the caller, but per spec.md §4.6 the engine must treat
// this as advisory — it never fails the node the event describes.
func (p *RedisPublisher) Publish(ctx context.Context, userID string, serializedEvent []byte) error {
	stream := streamForUser(userID)
	_, err := p.client.AddToStream(ctx, stream, map[string]interface{}{
		"event": string(serializedEvent),
	})
	if err != nil {
		p.log.Warn("failed to publish execution event", "stream", stream, "error", err)
		return err
	}
	return nil
}
