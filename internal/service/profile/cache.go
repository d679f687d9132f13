package profile

import (
	"context"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/constants"
	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/internal/service/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fetcher retrieves a player's public profile.
type Fetcher interface {
	FetchProfile(ctx context.Context, uid string) (*domain.EnkaProfileResponse, error)
}

// Cache keeps the last fetched profile snapshot per UID. Snapshots never
// expire; Refresh replaces them.
type Cache struct {
	store   cache.Store
	fetcher Fetcher
	logger  *zap.Logger
	group   singleflight.Group
	now     func() time.Time
}

func NewCache(store cache.Store, fetcher Fetcher, logger *zap.Logger) *Cache {
	return &Cache{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

func key(uid string) string {
	return constants.ProfileCacheConfig.KeyPrefix + uid
}

// Get returns the stored snapshot, or nil when the UID was never fetched.
func (c *Cache) Get(ctx context.Context, uid string) (*domain.ProfileSnapshot, error) {
	var snapshot domain.ProfileSnapshot
	found, err := cache.GetJSON(ctx, c.store, key(uid), &snapshot)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &snapshot, nil
}

// Refresh fetches the profile and overwrites the stored snapshot. Concurrent
// refreshes of one UID share a single fetch.
func (c *Cache) Refresh(ctx context.Context, uid string) (*domain.ProfileSnapshot, error) {
	v, err, shared := c.group.Do(uid, func() (interface{}, error) {
		resp, err := c.fetcher.FetchProfile(ctx, uid)
		if err != nil {
			return nil, err
		}

		snapshot := domain.NewProfileSnapshot(uid, resp, c.now())
		if err := cache.SetJSON(ctx, c.store, key(uid), snapshot, 0); err != nil {
			c.logger.Warn("Failed to persist profile snapshot", zap.String("uid", uid), zap.Error(err))
		}
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		c.logger.Debug("Profile refresh coalesced", zap.String("uid", uid))
	}
	return v.(*domain.ProfileSnapshot), nil
}

// GetOrRefresh returns the stored snapshot, fetching it on first use or when
// force is set.
func (c *Cache) GetOrRefresh(ctx context.Context, uid string, force bool) (*domain.ProfileSnapshot, error) {
	if !force {
		snapshot, err := c.Get(ctx, uid)
		if err != nil {
			c.logger.Warn("Profile cache read failed", zap.String("uid", uid), zap.Error(err))
		} else if snapshot != nil {
			return snapshot, nil
		}
	}
	return c.Refresh(ctx, uid)
}
