package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// GeocodeEntry is a cached geocoder result keyed by street + postal code.
type GeocodeEntry struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Geocode cache

func (c *Client) SetGeocode(ctx context.Context, key string, entry *GeocodeEntry, ttl time.Duration) error {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal geocode entry: %w", err)
	}
	return c.rdb.Set(ctx, "geocode:"+key, jsonData, ttl).Err()
}

func (c *Client) GetGeocode(ctx context.Context, key string) (*GeocodeEntry, error) {
	val, err := c.rdb.Get(ctx, "geocode:"+key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get geocode entry: %w", err)
	}

	var entry GeocodeEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geocode entry: %w", err)
	}
	return &entry, nil
}

// Webhook event dedupe

// MarkEventSeen records a webhook event id and reports whether this is
// the first time it was seen. Retried provider deliveries reuse the
// event id, so a false result means the event was already processed.
func (c *Client) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, "webhook_event:"+eventID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event seen: %w", err)
	}
	return ok, nil
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
