package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout  = 3 * time.Second
	pingTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
)

// RedisPublisher publishes events over Redis pub/sub, one channel per topic.
type RedisPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisPublisher parses a Redis URL, verifies connectivity, and returns a
// ready publisher.
func NewRedisPublisher(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisPublisher, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("events: invalid redis URL: %w", err)
	}
	options.DialTimeout = dialTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("events: redis unreachable: %w", err)
	}

	logger.Info("event publisher connected", "addr", options.Addr)
	return &RedisPublisher{client: client, logger: logger}, nil
}

// Publish sends the JSON-encoded payload to the topic channel. Redis pub/sub
// carries no partition key; key is kept for log correlation only.
func (p *RedisPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: encode %s payload: %w", topic, err)
	}

	if err := p.client.Publish(ctx, topic, body).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", topic, err)
	}

	p.logger.Debug("event published", "topic", topic, "key", key)
	return nil
}

func (p *RedisPublisher) Close() error { return p.client.Close() }
