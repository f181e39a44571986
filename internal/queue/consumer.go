package queue

import (
	"context"
	"time"

	"juku-import/internal/config"
	"juku-import/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const pollTimeout = 5 * time.Second

type Consumer struct {
	client    *redis.Client
	queue     string
	dlqSuffix string
	log       zerolog.Logger
}

type MessageHandler func(ctx context.Context, data []byte) error

func NewConsumer(redisClient *RedisClient, cfg config.RedisConfig) *Consumer {
	return &Consumer{
		client:    redisClient.Client(),
		queue:     cfg.SubmitQueue,
		dlqSuffix: cfg.DLQSuffix,
		log:       logger.Get(),
	}
}

// ConsumeSubmitQueue blocks until ctx is cancelled. Messages the handler
// rejects are moved to the dead letter queue.
func (c *Consumer) ConsumeSubmitQueue(ctx context.Context, handler MessageHandler) error {
	return c.consume(ctx, c.queue, handler)
}

func (c *Consumer) DLQName() string {
	return c.queue + c.dlqSuffix
}

// DeadLetter parks a message on the dead letter queue. It also serves
// handlers that finish a message after the consumer has moved on, so it
// ignores cancellation of ctx.
func (c *Consumer) DeadLetter(ctx context.Context, message []byte) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	dlqName := c.DLQName()
	if err := c.client.LPush(ctx, dlqName, message).Err(); err != nil {
		c.log.Error().Err(err).Str("dlq", dlqName).Msg("Failed to move message to DLQ")
	}
}

func (c *Consumer) consume(ctx context.Context, queueName string, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			result, err := c.client.BRPop(ctx, pollTimeout, queueName).Result()
			if err != nil {
				if err == redis.Nil {
					continue // Timeout, continue polling
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.log.Error().Err(err).Str("queue", queueName).Msg("Failed to consume message")
				time.Sleep(time.Second)
				continue
			}

			if len(result) < 2 {
				continue
			}

			message := []byte(result[1])
			if err := handler(ctx, message); err != nil {
				c.log.Error().Err(err).Str("queue", queueName).Msg("Failed to process message")
				c.DeadLetter(ctx, message)
			}
		}
	}
}
