package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// snapshotTTL bounds how long a stale snapshot survives a crashed server.
const snapshotTTL = 24 * time.Hour

func (c *Client) snapshotKey() string             { return c.prefix + ":current" }
func (c *Client) insightsKey(runID string) string { return c.prefix + ":run:" + runID + ":insights" }

// EventsChannel is the pub/sub channel simulation events are published on.
func (c *Client) EventsChannel() string { return c.prefix + ":events" }

// SetSnapshot stores the latest driver snapshot JSON.
func (c *Client) SetSnapshot(ctx context.Context, snapshot json.RawMessage) error {
	return c.rdb.Set(ctx, c.snapshotKey(), []byte(snapshot), snapshotTTL).Err()
}

// SetInsights stores a run's insight report for ttl (0 = no expiry).
func (c *Client) SetInsights(ctx context.Context, runID string, report json.RawMessage, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.insightsKey(runID), []byte(report), ttl).Err()
}

// GetInsights retrieves a run's insight report, or nil when none is stored.
func (c *Client) GetInsights(ctx context.Context, runID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, c.insightsKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get insights: %w", err)
	}
	return json.RawMessage(data), nil
}

// PublishEvent fans an event out to every subscriber of EventsChannel.
func (c *Client) PublishEvent(ctx context.Context, event json.RawMessage) error {
	return c.rdb.Publish(ctx, c.EventsChannel(), []byte(event)).Err()
}
