package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

// Cached serves index readings from redis for ttl. Cache errors never fail
// a read; they fall through to the wrapped source.
type Cached struct {
	src interfaces.SentimentSource
	rdb *redis.Client
	ttl time.Duration
}

var _ interfaces.SentimentSource = (*Cached)(nil)

func NewCached(src interfaces.SentimentSource, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{src: src, rdb: rdb, ttl: ttl}
}

func (c *Cached) key(limit int) string {
	return fmt.Sprintf("sentiment:fng:%d", limit)
}

func (c *Cached) Index(ctx context.Context, limit int) (types.SentimentReading, error) {
	key := c.key(limit)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var reading types.SentimentReading
		if jerr := json.Unmarshal(raw, &reading); jerr == nil {
			logger.Debug(ctx, "Sentiment served from cache", "key", key)
			return reading, nil
		}
		logger.Warn(ctx, "Discarding undecodable cached sentiment", "key", key)
	case !errors.Is(err, redis.Nil):
		logger.Warn(ctx, "Sentiment cache read failed", "key", key, "error", err)
	}

	reading, err := c.src.Index(ctx, limit)
	if err != nil {
		return types.SentimentReading{}, err
	}

	if b, jerr := json.Marshal(reading); jerr == nil {
		if serr := c.rdb.Set(ctx, key, b, c.ttl).Err(); serr != nil {
			logger.Warn(ctx, "Sentiment cache write failed", "key", key, "error", serr)
		}
	}
	return reading, nil
}

// NewRedisClient parses a redis:// URL, or treats the value as host:port.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
