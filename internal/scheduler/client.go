package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"fieldserve_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues the single-shot lifecycle timers. It satisfies the jobs
// service's TimerScheduler interface.
type Client struct {
	client *asynq.Client
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

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) ScheduleSoftLockExpiry(ctx context.Context, jobID uuid.UUID, generation int, runAt time.Time) error {
	task, err := NewSoftLockExpiryTask(LifecycleTimerPayload{JobID: jobID.String(), Generation: generation})
	if err != nil {
		return err
	}
	return c.enqueueAt(ctx, task, runAt)
}

func (c *Client) SchedulePaymentDeadline(ctx context.Context, jobID uuid.UUID, generation int, runAt time.Time) error {
	task, err := NewPaymentDeadlineTask(LifecycleTimerPayload{JobID: jobID.String(), Generation: generation})
	if err != nil {
		return err
	}
	return c.enqueueAt(ctx, task, runAt)
}

func (c *Client) ScheduleNegotiationExpiry(ctx context.Context, jobID uuid.UUID, generation int, runAt time.Time) error {
	task, err := NewNegotiationExpiryTask(LifecycleTimerPayload{JobID: jobID.String(), Generation: generation})
	if err != nil {
		return err
	}
	return c.enqueueAt(ctx, task, runAt)
}

func (c *Client) ScheduleHoldRelease(ctx context.Context, jobID uuid.UUID, runAt time.Time) error {
	task, err := NewHoldReleaseTask(HoldReleasePayload{JobID: jobID.String()})
	if err != nil {
		return err
	}
	return c.enqueueAt(ctx, task, runAt)
}

func (c *Client) enqueueAt(ctx context.Context, task *asynq.Task, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
