package render

import (
	"context"
	"fmt"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/constants"
	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/internal/service/cache"
	"go.uber.org/zap"
)

// Cache stores rendered cards per (uid, character).
type Cache struct {
	store  cache.Store
	logger *zap.Logger
}

func NewCache(store cache.Store, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

func CacheKey(uid string, id domain.CharacterID) string {
	return fmt.Sprintf("%s%s:%s", constants.RenderCacheConfig.KeyPrefix, uid, id)
}

func (c *Cache) Get(ctx context.Context, uid string, id domain.CharacterID) ([]byte, bool, error) {
	return c.store.GetBytes(ctx, CacheKey(uid, id))
}

// Put stores artifact for ttl. A ttl under one minute is a no-op.
func (c *Cache) Put(ctx context.Context, uid string, id domain.CharacterID, artifact []byte, ttl time.Duration) error {
	if ttl < constants.RenderCacheConfig.MinTTL {
		c.logger.Debug("Render cache disabled for short ttl", zap.Duration("ttl", ttl))
		return nil
	}
	return c.store.SetBytes(ctx, CacheKey(uid, id), artifact, ttl)
}
