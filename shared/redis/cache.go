package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ViewCache is a JSON-backed Redis cache for one read model type T.
// Every key is namespaced with prefix; a zero ttl stores keys without expiry.
type ViewCache[T any] struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewViewCache[T any](client *goredis.Client, prefix string, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, prefix: prefix, ttl: ttl}
}

// Get returns (nil, false) on a miss and on any decode failure.
func (c *ViewCache[T]) Get(ctx context.Context, id string) (*T, bool) {
	data, err := c.client.Get(ctx, c.prefix+id).Bytes()
	if err != nil {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("ViewCache: corrupt entry %s%s: %v", c.prefix, id, err)
		return nil, false
	}
	return &v, true
}

// Set stores value under id. Write failures are logged, not returned.
func (c *ViewCache[T]) Set(ctx context.Context, id string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("ViewCache: marshal error for key %s%s: %v", c.prefix, id, err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+id, data, c.ttl).Err(); err != nil {
		log.Printf("ViewCache: write error for key %s%s: %v", c.prefix, id, err)
	}
}
