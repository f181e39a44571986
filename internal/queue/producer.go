package queue

import (
	"context"
	"encoding/json"

	"juku-import/internal/config"
	"juku-import/internal/model"

	"github.com/go-redis/redis/v8"
)

type Producer struct {
	client *redis.Client
	queue  string
}

func NewProducer(redisClient *RedisClient, cfg config.RedisConfig) *Producer {
	return &Producer{
		client: redisClient.Client(),
		queue:  cfg.SubmitQueue,
	}
}

func (p *Producer) EnqueueSubmitJob(ctx context.Context, job model.SubmitJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return p.client.LPush(ctx, p.queue, data).Err()
}
