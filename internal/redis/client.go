package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flightwatch/flight-replay/internal/types"
)

// cacheTTL bounds how long fetched tracks and events stay valid. Replay data
// is immutable per flight, but the backend may re-run detection, so entries
// eventually expire.
const cacheTTL = time.Hour

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client caches fetched tracks and event lists between replay sessions.
type Client struct {
	client RedisClientInterface
}

// New creates a new Redis client
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// StoreTrack caches a normalized track by flight id.
func (c *Client) StoreTrack(ctx context.Context, track *types.Track) error {
	data, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("failed to marshal track data: %w", err)
	}

	key := fmt.Sprintf("track:%s", track.ID)
	return c.client.Set(ctx, key, data, cacheTTL).Err()
}

// GetTrack retrieves a cached track. A nil track with nil error means a
// cache miss.
func (c *Client) GetTrack(ctx context.Context, flightID string) (*types.Track, error) {
	key := fmt.Sprintf("track:%s", flightID)
	var track types.Track
	found, err := c.getData(ctx, key, &track, "track")
	if err != nil || !found {
		return nil, err
	}
	return &track, nil
}

// DeleteTrack removes a cached track.
func (c *Client) DeleteTrack(ctx context.Context, flightID string) error {
	key := fmt.Sprintf("track:%s", flightID)
	return c.client.Del(ctx, key).Err()
}

// StoreEvents caches a flight's normalized event list.
func (c *Client) StoreEvents(ctx context.Context, flightID string, events []types.Event) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	key := fmt.Sprintf("events:%s", flightID)
	return c.client.Set(ctx, key, data, cacheTTL).Err()
}

// GetEvents retrieves a flight's cached events. Nil with nil error means a
// cache miss.
func (c *Client) GetEvents(ctx context.Context, flightID string) ([]types.Event, error) {
	key := fmt.Sprintf("events:%s", flightID)
	var events []types.Event
	found, err := c.getData(ctx, key, &events, "events")
	if err != nil || !found {
		return nil, err
	}
	return events, nil
}

// DeleteEvents removes a flight's cached events.
func (c *Client) DeleteEvents(ctx context.Context, flightID string) error {
	key := fmt.Sprintf("events:%s", flightID)
	return c.client.Del(ctx, key).Err()
}

// getData retrieves data from Redis and unmarshals it into the target
func (c *Client) getData(ctx context.Context, key string, target interface{}, dataType string) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil // Data not found
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s data: %w", dataType, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s data: %w", dataType, err)
	}

	return true, nil
}
