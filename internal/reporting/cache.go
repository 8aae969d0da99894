package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const summaryPrefix = "reporting:summary:"

// summaryCache stores JSON encoded summaries in redis. A nil client turns
// every call into a miss.
type summaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (c summaryCache) enabled() bool {
	return c.client != nil && c.ttl > 0
}

func (c summaryCache) key(kind, id string) string {
	return fmt.Sprintf("%s%s:%s", summaryPrefix, kind, id)
}

func (c summaryCache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("read cached summary: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached summary: %w", err)
	}
	return true, nil
}

func (c summaryCache) set(ctx context.Context, key string, value any) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
