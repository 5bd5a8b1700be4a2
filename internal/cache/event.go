package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveredEventTTL covers the processor's retry horizon.
const DeliveredEventTTL = 72 * time.Hour

// IsEventDelivered reports whether an event was already applied.
func (c *Cache) IsEventDelivered(ctx context.Context, eventID string) (bool, error) {
	err := c.client.Get(ctx, c.key("webhook", "event", eventID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get delivered marker: %w", err)
	}
	return true, nil
}

// MarkEventDelivered records that an event has been applied.
// Call only after the store mutation has succeeded.
func (c *Cache) MarkEventDelivered(ctx context.Context, eventID string) error {
	if err := c.client.Set(ctx, c.key("webhook", "event", eventID), time.Now().Unix(), DeliveredEventTTL).Err(); err != nil {
		return fmt.Errorf("set delivered marker: %w", err)
	}
	return nil
}
