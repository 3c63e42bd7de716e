package service

import (
	"sync"
	"time"

	"github.com/pairstats/analytics-backend/internal/config"
)

// AccountCache serves the account registry with a TTL, re-reading the
// file on a stale read. A failed refresh serves the previous copy rather
// than failing the request; only a cache with no copy at all surfaces the
// load error. Last writer wins on concurrent refresh, which is fine since
// every writer loads the same file.
type AccountCache struct {
	path   string
	ttl    time.Duration
	loader func(string) (*config.Registry, error)
	now    func() time.Time

	mu        sync.RWMutex
	reg       *config.Registry
	fetchedAt time.Time
}

func NewAccountCache(path string, ttl time.Duration) *AccountCache {
	return &AccountCache{
		path:   path,
		ttl:    ttl,
		loader: config.LoadRegistry,
		now:    time.Now,
	}
}

func (c *AccountCache) Registry() (*config.Registry, error) {
	c.mu.RLock()
	reg, fresh := c.reg, c.now().Sub(c.fetchedAt) < c.ttl
	c.mu.RUnlock()
	if reg != nil && fresh {
		return reg, nil
	}

	loaded, err := c.loader(c.path)
	if err != nil {
		if reg != nil {
			return reg, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.reg = loaded
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return loaded, nil
}

// Invalidate forces the next read to hit the file.
func (c *AccountCache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
