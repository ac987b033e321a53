package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Publisher fans inbox events out to every ws-server instance through Redis
// pub/sub. Events are JSON encoded.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, room string, event interface{}) (err error) {
	defer func() { countPublish(err) }()

	switch {
	case room == "":
		return fmt.Errorf("publish event: room required")
	case p == nil || p.client == nil:
		return fmt.Errorf("publish event: no redis client")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publish event to %s: %w", room, err)
	}
	if err := p.client.Publish(ctx, room, data).Err(); err != nil {
		return fmt.Errorf("publish event to %s: %w", room, err)
	}
	return nil
}
