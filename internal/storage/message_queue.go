package storage

import (
	"context"
	"fmt"

	"DAQ-Lab/DLPIO8/internal/config"
	"DAQ-Lab/DLPIO8/internal/sampler"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// keep the most recent samples on the list
const LIST_MAX_LEN = 1000

// RedisPublisher publishes every sample on a pub/sub channel and keeps a capped history list
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.Addr)
	}

	logger.Info("Connected to redis", zap.String("addr", cfg.Addr), zap.String("channel", cfg.Channel))
	return &RedisPublisher{
		client:  client,
		channel: cfg.Channel,
		logger:  logger,
	}, nil
}

func ListKey(device string) string {
	return fmt.Sprintf("dlpio8:%s:samples", device)
}

func (p *RedisPublisher) Write(ctx context.Context, sample sampler.Sample) error {
	payload, err := EncodeSample(sample)
	if err != nil {
		return errors.Wrap(err, "failed to encode sample")
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.Wrap(err, "failed to publish sample")
	}

	listKey := ListKey(sample.Device)
	if err := p.client.LPush(ctx, listKey, payload).Err(); err != nil {
		p.logger.Warn("Failed to push sample to list", zap.String("key", listKey), zap.Error(err))
		return nil
	}
	if err := p.client.LTrim(ctx, listKey, 0, LIST_MAX_LEN-1).Err(); err != nil {
		p.logger.Warn("Failed to trim sample list", zap.String("key", listKey), zap.Error(err))
	}

	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
