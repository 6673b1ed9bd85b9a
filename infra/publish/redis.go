package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/parkcast/core/artifact"
	"github.com/kilianp07/parkcast/core/logger"
)

// RunNotice is published on the notification channel after a run's keys
// were written.
type RunNotice struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Bays        int       `json:"bays"`
	Zones       int       `json:"zones"`
	Forecast    bool      `json:"forecast"`
}

// RedisPublisher stores artifacts as JSON keys and notifies subscribers.
type RedisPublisher struct {
	client  *redis.Client
	prefix  string
	channel string
	ttl     time.Duration
	log     logger.Logger
}

// NewRedisPublisher connects to the redis URL. A zero ttl keeps keys
// forever.
func NewRedisPublisher(ctx context.Context, url, prefix, channel string, ttl time.Duration, log logger.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisPublisher{client: client, prefix: prefix, channel: channel, ttl: ttl, log: logger.OrNop(log)}, nil
}

// Key returns the full key of name.
func (p *RedisPublisher) Key(name string) string { return p.prefix + ":" + name }

// BayKey returns the key of a bay's forecast series.
func (p *RedisPublisher) BayKey(id string) string { return p.Key("forecast:bay:" + id) }

// Publish writes every key in one MULTI block and then publishes a
// RunNotice.
func (p *RedisPublisher) Publish(ctx context.Context, b *artifact.Bundle) error {
	values := map[string]any{p.Key("centroids"): b.Centroids}
	if b.HasForecast() {
		values[p.Key("forecast:all")] = b.Forecast.Combined()
		for _, s := range b.Forecast.Series {
			values[p.BayKey(string(s.BayID))] = s
		}
	}
	notice := RunNotice{
		RunID:       b.RunID,
		GeneratedAt: b.GeneratedAt,
		Bays:        len(b.Bays),
		Zones:       len(b.Centroids),
		Forecast:    b.HasForecast(),
	}
	values[p.Key("run")] = notice

	encoded := make(map[string][]byte, len(values))
	for k, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		encoded[k] = data
	}
	if _, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, data := range encoded {
			pipe.Set(ctx, k, data, p.ttl)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("redis write: %w", err)
	}
	if p.channel != "" {
		if err := p.client.Publish(ctx, p.channel, encoded[p.Key("run")]).Err(); err != nil {
			return fmt.Errorf("redis publish: %w", err)
		}
	}
	p.log.Infof("run %s stored in redis (%d keys)", b.RunID, len(encoded))
	return nil
}

// Close closes the client.
func (p *RedisPublisher) Close() error { return p.client.Close() }
