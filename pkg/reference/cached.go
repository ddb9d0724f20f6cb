package reference

import (
	"context"
	"time"

	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/utils/cache"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/utils/cache/loadercache"
)

// CachedProvider memoizes pack lookups of a slower provider (e.g. one
// backed by a remote metadata service).
type CachedProvider struct {
	cache cache.Cache[string, Pack]
}

func NewCachedProvider(inner Provider, expiration time.Duration) *CachedProvider {
	return &CachedProvider{
		cache: loadercache.New(
			loadercache.WithExpiration[string, Pack](expiration),
			loadercache.WithLoader(func(key string) (*Pack, error) {
				return inner.Pack(key)
			}),
		),
	}
}

func (c *CachedProvider) Pack(key string) (*Pack, error) {
	pack, err := c.cache.Get(context.Background(), key)
	if err != nil {
		return nil, err
	}
	return pack, nil
}

// Invalidate drops a cached entry, e.g. after a reference update.
func (c *CachedProvider) Invalidate(key string) {
	c.cache.Invalidate(context.Background(), key)
}
