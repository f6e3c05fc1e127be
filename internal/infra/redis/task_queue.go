// internal/infra/redis/task_queue.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"translation-dispatch/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

const (
	connectTimeout = 5 * time.Second
	// popTimeout bounds each BRPOP so Dequeue notices a cancelled ctx.
	popTimeout = 2 * time.Second
)

// TaskQueue is a FIFO of translation tasks on a Redis list.
type TaskQueue struct {
	client    *goredis.Client
	queueName string
}

var _ domain.TaskQueue = (*TaskQueue)(nil)

// NewTaskQueue connects to the Redis at url and checks it with a PING.
func NewTaskQueue(url, queueName string) (*TaskQueue, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := goredis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &TaskQueue{client: client, queueName: queueName}, nil
}

// Enqueue appends task to the queue.
func (q *TaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	// LPUSH + BRPOP gives FIFO order.
	if err := q.client.LPush(ctx, q.queueName, data).Err(); err != nil {
		return mapErr(err)
	}
	return nil
}

// Dequeue blocks until a task is available or ctx is done.
func (q *TaskQueue) Dequeue(ctx context.Context) (*domain.Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := q.client.BRPop(ctx, popTimeout, q.queueName).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to dequeue task: %w", mapErr(err))
		}
		return decodeTask(result)
	}
}

// Depth returns the number of tasks waiting.
func (q *TaskQueue) Depth(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.queueName).Result()
	return n, mapErr(err)
}

func (q *TaskQueue) Close() error {
	return q.client.Close()
}

// decodeTask parses a BRPOP reply, which is [queueName, value].
func decodeTask(result []string) (*domain.Task, error) {
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result: want 2 elements, got %d", len(result))
	}
	var task domain.Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

func mapErr(err error) error {
	if errors.Is(err, goredis.ErrClosed) {
		return domain.ErrQueueClosed
	}
	return err
}
