package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// TabStore keeps per-session values in memory for the lifetime of the agent
// process. No expiration: the values die with the tab, not with a TTL.
type TabStore struct {
	cache *cache.Cache
}

func NewTabStore() *TabStore {
	c := cache.New(cache.NoExpiration, 10*time.Minute)
	return &TabStore{
		cache: c,
	}
}

func (r *TabStore) Get(key string) (string, bool) {
	if x, found := r.cache.Get(key); found {
		return x.(string), true
	}
	return "", false
}

func (r *TabStore) Set(key, value string) {
	r.cache.Set(key, value, cache.NoExpiration)
}

func (r *TabStore) Delete(key string) {
	r.cache.Delete(key)
}
