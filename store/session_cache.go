package store

import (
	"time"

	cache "github.com/patrickmn/go-cache"
)

// SessionCache remembers which visitor session ids have already been
// persisted, so repeat beacons from the same tab skip the store lookup.
// It is a memo in front of the existence check, not the source of truth:
// a cache miss still consults the store.
type SessionCache struct {
	seen *cache.Cache
}

// NewSessionCache creates a cache whose entries outlive any realistic tab
// session. Session ids are ephemeral per page load, so a 24-hour expiry
// with hourly cleanup keeps the cache bounded.
func NewSessionCache() *SessionCache {
	return &SessionCache{
		seen: cache.New(24*time.Hour, 1*time.Hour),
	}
}

func (c *SessionCache) Seen(sessionID string) bool {
	_, ok := c.seen.Get(sessionID)
	return ok
}

func (c *SessionCache) MarkSeen(sessionID string) {
	c.seen.Set(sessionID, struct{}{}, cache.DefaultExpiration)
}
