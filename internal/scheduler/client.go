package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"travel_leads_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Enqueuer is the part of asynq.Client used by the scheduler.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Client struct {
	client Enqueuer
	closer func() error
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	client := asynq.NewClient(opt)
	return &Client{
		client: client,
		closer: client.Close,
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

// EnqueueOverdueSweep queues one overdue sweep for the worker.
func (c *Client) EnqueueOverdueSweep(ctx context.Context, requestedAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewOverdueSweepTask(OverdueSweepPayload{RequestedAt: requestedAt.UTC()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(2), asynq.Timeout(5*time.Minute))
	return err
}

// NewRedisClient opens a go-redis client for the same server asynq uses.
func NewRedisClient(cfg config.SchedulerConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	opt.TLSConfig = tlsConfigFor(opt.TLSConfig, cfg.GetRedisTLSInsecure())
	return redis.NewClient(opt), nil
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfigFor(opt.TLSConfig, tlsInsecure),
	}, nil
}

func tlsConfigFor(base *tls.Config, insecure bool) *tls.Config {
	if base != nil {
		clone := base.Clone()
		if insecure {
			clone.InsecureSkipVerify = true
		}
		return clone
	}
	if insecure {
		return &tls.Config{InsecureSkipVerify: true}
	}
	return nil
}
