package cache

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryCache is a size-bounded, process-local Cache. Publish has no
// subscribers to reach and only logs.
type MemoryCache struct {
	entries *lru.Cache[string, memoryEntry]
	logger  *zap.Logger
	now     func() time.Time
}

func NewMemoryCache(size int, logger *zap.Logger) (*MemoryCache, error) {
	if size < 1 {
		size = 1024
	}
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{entries: entries, logger: logger, now: time.Now}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.entries.Remove(key)
		return false, nil
	}
	return true, json.Unmarshal(entry.data, dest)
}

func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries.Add(key, entry)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}

func (c *MemoryCache) Publish(_ context.Context, channel string, _ interface{}) error {
	c.logger.Debug("Event not fanned out, no broker configured", zap.String("channel", channel))
	return nil
}

func (c *MemoryCache) Close() error {
	c.entries.Purge()
	return nil
}
