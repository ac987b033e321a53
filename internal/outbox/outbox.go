// Package outbox hands outbound WhatsApp messages from the API servers to the
// bridge through a Redis list.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

type Job struct {
	MessageID      string           `json:"messageId"`
	ConversationID string           `json:"conversationId"`
	Phone          string           `json:"phone"`
	ContentKind    lead.ContentKind `json:"contentKind"`
	Content        string           `json:"content"`
	MediaURL       string           `json:"mediaUrl,omitempty"`
	EnqueuedAt     time.Time        `json:"enqueuedAt"`
}

type Queue struct {
	client *redis.Client
	key    string
}

func New(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

func (q *Queue) Push(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("outbox: marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("outbox: push: %w", err)
	}
	return nil
}

// Pop waits up to timeout for the oldest job. ok is false when nothing arrived.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (job Job, ok bool, err error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, fmt.Errorf("outbox: pop: %w", err)
	}
	// BRPOP replies with [key, value]
	if len(res) != 2 {
		return Job{}, false, fmt.Errorf("outbox: unexpected reply of %d elements", len(res))
	}
	job, err = Decode([]byte(res[1]))
	if err != nil {
		return Job{}, false, err
	}
	return job, true, nil
}

func Decode(payload []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return Job{}, fmt.Errorf("outbox: decode job: %w", err)
	}
	if job.MessageID == "" || job.Phone == "" {
		return Job{}, fmt.Errorf("outbox: job missing message id or phone")
	}
	return job, nil
}
