package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(redisURL, queue string) (*Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}
	if queue == "" {
		queue = "default"
	}
	return &Client{client: asynq.NewClient(opt), queue: queue}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueProcessThread schedules pipeline processing for one thread. Tasks
// are deduplicated per thread so a poller pass never queues the same thread
// twice while an earlier task is pending.
func (c *Client) EnqueueProcessThread(ctx context.Context, threadID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewProcessThreadTask(ProcessThreadPayload{ThreadID: threadID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID("thread:"+threadID),
		asynq.MaxRetry(3),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
