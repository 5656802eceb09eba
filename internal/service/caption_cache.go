package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
)

const captionKeyPrefix = "captions:"

// CaptionCache stores successful extractions in Redis so repeated requests
// for the same video and language skip the fallback chain.
type CaptionCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewCaptionCache creates a new CaptionCache.
func NewCaptionCache(redisClient *redis.Client, ttl time.Duration) *CaptionCache {
	return &CaptionCache{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

// NewRedisClient parses a redis:// URL and returns a client for it.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func captionKey(videoID, language string) string {
	return captionKeyPrefix + videoID + ":" + strings.ToLower(language)
}

// Get returns the cached extraction, or nil when there is none.
func (c *CaptionCache) Get(ctx context.Context, videoID, language string) (*models.Success, error) {
	data, err := c.redisClient.Get(ctx, captionKey(videoID, language)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached captions: %w", err)
	}

	var s models.Success
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode cached captions: %w", err)
	}
	s.Cached = true
	return &s, nil
}

// Set caches a successful extraction. Strategy attempts are not stored.
func (c *CaptionCache) Set(ctx context.Context, videoID, language string, s *models.Success) error {
	entry := *s
	entry.Attempts = nil

	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to encode captions: %w", err)
	}
	if err := c.redisClient.Set(ctx, captionKey(videoID, language), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache captions: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *CaptionCache) Ping(ctx context.Context) error {
	return c.redisClient.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *CaptionCache) Close() error {
	return c.redisClient.Close()
}
