package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// streamMaxLen bounds each facility stream so an idle consumer cannot
// grow Redis unboundedly.
const streamMaxLen = 10000

// RedisSink appends events to a per-facility Redis stream
// (canopy:events:<facility>) so downstream consumers can tail triggers.
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink creates a sink backed by Redis.
func NewRedisSink(addr, password string, db int) *RedisSink {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisSink{client: rdb}
}

// NewRedisSinkFromClient wraps an existing client (used in tests).
func NewRedisSinkFromClient(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Emit(ctx context.Context, facilityID, subjectID, eventType string, payload map[string]any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(facilityID),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"subject": subjectID,
			"type":    eventType,
			"payload": string(payloadJSON),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("append event to stream: %w", err)
	}
	return nil
}

// Ping verifies connectivity, used at startup to decide between the Redis
// sink and the in-memory fallback.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisSink) Close() error { return s.client.Close() }

// StreamKey returns the stream name for a facility.
func StreamKey(facilityID string) string {
	return fmt.Sprintf("canopy:events:%s", facilityID)
}
